package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/joescharf/tracker/internal/attachments"
	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/output"
	"github.com/joescharf/tracker/internal/tracker"
)

var (
	issueAuthor   string
	issueState    string
	issueCategory string
	issueSubject  string
	issueDesc     string
	issueBody     string
	issueAttach   string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "Create, list and update issues in the configured data directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmd.Context())
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues, most recent first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmd.Context())
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(cmd.Context(), args[0])
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new issue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun(cmd.Context())
	},
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment <issue-id>",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCommentRun(cmd.Context(), args[0])
	},
}

var issueStateCmd = &cobra.Command{
	Use:   "state <issue-id> <state>",
	Short: "Set the state of an issue (new, in_process, review, done)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStateRun(cmd.Context(), args[0], args[1])
	},
}

func init() {
	issueCmd.PersistentFlags().StringVar(&issueAuthor, "author", "", "Author recorded on new issues and comments (default bootstrap.admin_user)")

	issueListCmd.Flags().StringVar(&issueState, "state", "", "Filter by state: new, in_process, review, done")
	issueListCmd.Flags().StringVar(&issueCategory, "category", "", "Filter by category: bug, feature, support, improvement")

	issueAddCmd.Flags().StringVar(&issueCategory, "category", "", "Category: bug, feature, support, improvement (required)")
	issueAddCmd.Flags().StringVar(&issueSubject, "subject", "", "Issue subject (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	issueAddCmd.Flags().StringVar(&issueAttach, "attach", "", "File to attach")
	_ = issueAddCmd.MarkFlagRequired("category")
	_ = issueAddCmd.MarkFlagRequired("subject")
	_ = issueAddCmd.MarkFlagRequired("desc")

	issueCommentCmd.Flags().StringVar(&issueBody, "body", "", "Comment text (required)")
	issueCommentCmd.Flags().StringVar(&issueAttach, "attach", "", "File to attach")
	_ = issueCommentCmd.MarkFlagRequired("body")

	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueCommentCmd)
	issueCmd.AddCommand(issueStateCmd)
	rootCmd.AddCommand(issueCmd)
}

// parseIssueID accepts "12" or "#12".
func parseIssueID(s string) (int, error) {
	id, err := cast.ToIntE(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", s)
	}
	return id, nil
}

func author(a *deps) string {
	if issueAuthor != "" {
		return issueAuthor
	}
	return a.cfg.Bootstrap.AdminUser
}

func issueListRun(ctx context.Context) error {
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	f := tracker.Filter{State: models.State(issueState), Category: models.Category(issueCategory)}
	if f.State != "" && !f.State.Valid() {
		return fmt.Errorf("unknown state %q", issueState)
	}
	if f.Category != "" && !f.Category.Valid() {
		return fmt.Errorf("unknown category %q", issueCategory)
	}

	issues, err := a.tracker.ListIssues(ctx, f)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}
	return ui.IssueTable(issues)
}

func issueShowRun(ctx context.Context, ref string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	issue, err := a.tracker.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	files, err := a.files.Lookup(ctx, issue.AttachmentKeys()...)
	if err != nil {
		return err
	}
	ui.IssueDetail(issue, files)
	return nil
}

func issueAddRun(ctx context.Context) error {
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	in := tracker.NewIssue{
		Category:    models.Category(issueCategory),
		Subject:     issueSubject,
		Description: issueDesc,
		Author:      author(a),
	}
	if err := in.Validate(); err != nil {
		return err
	}

	if dryRun {
		next, err := a.tracker.NextID(ctx)
		if err != nil {
			return err
		}
		ui.DryRunMsg("Would create issue #%d: %s [%s]", next, strings.TrimSpace(issueSubject), issueCategory)
		return nil
	}

	if issueAttach != "" {
		if in.Attachment, err = attachFile(ctx, a, issueAttach, in.Author); err != nil {
			return err
		}
	}
	issue, err := a.tracker.CreateIssue(ctx, in)
	if err != nil {
		discardAttachment(ctx, a, in.Attachment)
		return err
	}

	ui.Success("Created issue %s: %s", output.Cyan(fmt.Sprintf("#%d", issue.ID)), issue.Subject)
	return nil
}

func issueCommentRun(ctx context.Context, ref string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	in := tracker.NewComment{Body: issueBody, Author: author(a)}
	if err := in.Validate(); err != nil {
		return err
	}
	if _, err := a.tracker.GetIssue(ctx, id); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would comment on issue #%d as %s", id, in.Author)
		return nil
	}

	if issueAttach != "" {
		if in.Attachment, err = attachFile(ctx, a, issueAttach, in.Author); err != nil {
			return err
		}
	}
	if _, err := a.tracker.AddComment(ctx, id, in); err != nil {
		discardAttachment(ctx, a, in.Attachment)
		return err
	}

	ui.Success("Commented on issue %s", output.Cyan(fmt.Sprintf("#%d", id)))
	return nil
}

func issueStateRun(ctx context.Context, ref, state string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	st := models.State(strings.ToLower(strings.TrimSpace(state)))
	if dryRun {
		if !st.Valid() {
			return fmt.Errorf("unknown state %q", state)
		}
		ui.DryRunMsg("Would set issue #%d to %s", id, st)
		return nil
	}

	if err := a.tracker.UpdateState(ctx, id, st); err != nil {
		return err
	}
	ui.Success("Issue %s is now %s", output.Cyan(fmt.Sprintf("#%d", id)), output.StateColor(string(st)))
	return nil
}

// attachFile stores the file at path and returns its attachment key.
func attachFile(ctx context.Context, a *deps, path, uploadedBy string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("attachment %s is a directory", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	key, err := a.files.Store(ctx, f, attachments.Upload{
		OriginalName: filepath.Base(path),
		MimeType:     mimeType,
		Size:         info.Size(),
		UploadedBy:   uploadedBy,
	})
	if err != nil {
		return "", err
	}
	ui.VerboseLog("Stored %s as %s", filepath.Base(path), key)
	return key, nil
}

func discardAttachment(ctx context.Context, a *deps, key string) {
	if key == "" {
		return
	}
	if err := a.files.Remove(ctx, key); err != nil {
		ui.Warning("Could not remove orphan attachment %s: %v", key, err)
	}
}
