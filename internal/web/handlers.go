package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/joescharf/tracker/internal/attachments"
	"github.com/joescharf/tracker/internal/auth"
	"github.com/joescharf/tracker/internal/locale"
	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/sessions"
	"github.com/joescharf/tracker/internal/tracker"
)

// page is the data every template receives.
type page struct {
	Req        *RequestContext
	Title      string
	Error      string
	Locales    []string
	Categories []models.Category
	States     []models.State
	Form       form

	Issues []*models.Issue
	Counts map[models.State]int
	Issue  *models.Issue
	Files  map[string]*models.Attachment
	NextID int
	Import *tracker.ImportResult

	catalog *locale.Catalog
}

// form echoes submitted values back into a re-rendered page.
type form struct {
	Username    string
	Category    string
	Subject     string
	Description string
	Comment     string
	TicketsText string
}

// T translates key in the request's locale.
func (p *page) T(key any) string {
	return p.catalog.T(p.Req.Locale, fmt.Sprint(key))
}

func (s *Server) newPage(r *http.Request, titleKey string) *page {
	p := &page{
		Req:        FromContext(r.Context()),
		Locales:    s.catalog.Codes(),
		Categories: models.AllCategories(),
		States:     models.AllStates(),
		catalog:    s.catalog,
	}
	p.Title = p.T(titleKey)
	return p
}

// --- GET ---

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rc := FromContext(r.Context())

	switch {
	case q.Has("lang"):
		s.setLang(w, r, q.Get("lang"))
		return
	case q.Has("logout"):
		s.logout(w, r)
		return
	}

	if !rc.Authenticated() {
		if q.Has("download") || q.Has("view") {
			redirect(w, r, "/")
			return
		}
		s.render(w, http.StatusOK, "login", s.newPage(r, "login"))
		return
	}

	if q.Has("download") {
		s.download(w, r, q.Get("download"))
		return
	}

	switch q.Get("view") {
	case "issue":
		s.viewIssue(w, r, q.Get("id"))
	case "new":
		s.render(w, http.StatusOK, "new", s.newPage(r, "new_issue"))
	case "import":
		s.viewImport(w, r, http.StatusOK, s.newPage(r, "import_tickets"))
	default:
		s.viewHome(w, r)
	}
}

func (s *Server) setLang(w http.ResponseWriter, r *http.Request, code string) {
	if s.catalog.Has(code) {
		s.sessions.SetLocale(FromContext(r.Context()).SessionID, code)
	}
	redirect(w, r, r.URL.Path)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Destroy(FromContext(r.Context()).SessionID)
	http.SetCookie(w, s.sessions.ExpiredCookie())
	redirect(w, r, "/")
}

func (s *Server) viewHome(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f tracker.Filter
	if st := models.State(q.Get("state")); st.Valid() {
		f.State = st
	}
	if c := models.Category(q.Get("category")); c.Valid() {
		f.Category = c
	}

	issues, err := s.tracker.ListIssues(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	counts, err := s.tracker.Counts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p := s.newPage(r, "issues")
	p.Issues = issues
	p.Counts = counts
	s.render(w, http.StatusOK, "home", p)
}

func (s *Server) viewIssue(w http.ResponseWriter, r *http.Request, rawID string) {
	s.renderIssue(w, r, http.StatusOK, rawID, s.newPage(r, "issue"))
}

// renderIssue loads the issue and its attachments into p. A missing issue
// renders the page with a not-found notice.
func (s *Server) renderIssue(w http.ResponseWriter, r *http.Request, status int, rawID string, p *page) {
	id, err := cast.ToIntE(strings.TrimSpace(rawID))
	if err != nil {
		s.render(w, http.StatusNotFound, "issue", p)
		return
	}
	issue, err := s.tracker.GetIssue(r.Context(), id)
	if errors.Is(err, tracker.ErrNotFound) {
		s.render(w, http.StatusNotFound, "issue", p)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	files, err := s.files.Lookup(r.Context(), issue.AttachmentKeys()...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p.Issue = issue
	p.Files = files
	p.Title = fmt.Sprintf("#%d %s", issue.ID, issue.Subject)
	s.render(w, status, "issue", p)
}

func (s *Server) viewImport(w http.ResponseWriter, r *http.Request, status int, p *page) {
	next, err := s.tracker.NextID(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p.NextID = next
	s.render(w, status, "import", p)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, key string) {
	dl, err := s.files.Open(r.Context(), key)
	if errors.Is(err, attachments.ErrNotFound) {
		writeText(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer dl.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Record.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", disposition)
	h.Set("Cache-Control", "no-cache, must-revalidate")
	h.Set("Pragma", "no-cache")
	http.ServeContent(w, r, dl.Record.OriginalName, dl.ModTime, dl.Content)
}

// --- POST ---

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeText(w, http.StatusBadRequest, "Malformed form")
		return
	}

	rc := FromContext(r.Context())
	if !sessions.VerifyCSRF(rc.session, r.PostFormValue("csrf_token")) {
		s.log.Warn("csrf token rejected", "path", r.URL.Path, "user", rc.User)
		writeText(w, http.StatusForbidden, "Invalid CSRF token")
		return
	}

	vals := r.PostForm
	if vals.Has("login") {
		s.login(w, r)
		return
	}
	if !rc.Authenticated() {
		redirect(w, r, "/")
		return
	}

	switch {
	case vals.Has("new_issue"):
		s.createIssue(w, r)
	case vals.Has("new_comment"):
		s.addComment(w, r)
	case vals.Has("update_state"):
		s.updateState(w, r)
	case vals.Has("import_tickets"):
		s.importTickets(w, r)
	default:
		writeText(w, http.StatusBadRequest, "Unknown action")
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	username := r.PostFormValue("username")

	user, err := s.users.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, auth.ErrAuthenticationFailed) {
		s.log.Warn("login failed", "user", username)
		p := s.newPage(r, "login")
		p.Error = p.T("invalid_credentials")
		p.Form.Username = username
		s.render(w, http.StatusUnauthorized, "login", p)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess, ok := s.sessions.Login(rc.SessionID, user.Username, user.Role)
	if !ok {
		redirect(w, r, "/")
		return
	}
	s.log.Info("login", "user", user.Username)
	http.SetCookie(w, s.sessions.Cookie(sess))
	redirect(w, r, "/")
}

// saveUpload stores the optional "attachment" file and returns its key, or
// "" when no file was sent.
func (s *Server) saveUpload(r *http.Request, user string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	f, hdr, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	if hdr.Filename == "" {
		return "", nil
	}
	return s.files.Store(r.Context(), f, attachments.Upload{
		OriginalName: hdr.Filename,
		MimeType:     hdr.Header.Get("Content-Type"),
		Size:         hdr.Size,
		UploadedBy:   user,
	})
}

// discardUpload removes an attachment whose owning write failed.
func (s *Server) discardUpload(r *http.Request, key string) {
	if key == "" {
		return
	}
	if err := s.files.Remove(r.Context(), key); err != nil {
		s.log.Warn("discard attachment", "key", key, "err", err)
	}
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	in := tracker.NewIssue{
		Category:    models.Category(r.PostFormValue("category")),
		Subject:     r.PostFormValue("subject"),
		Description: r.PostFormValue("description"),
		Author:      rc.User,
	}
	if err := in.Validate(); err != nil {
		p := s.newPage(r, "new_issue")
		p.Error = err.Error()
		p.Form = form{Category: string(in.Category), Subject: in.Subject, Description: in.Description}
		s.render(w, failStatus(err), "new", p)
		return
	}

	key, err := s.saveUpload(r, rc.User)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in.Attachment = key

	issue, err := s.tracker.CreateIssue(r.Context(), in)
	if err != nil {
		s.discardUpload(r, key)
		s.fail(w, r, err)
		return
	}
	s.log.Info("issue created", "id", issue.ID, "user", rc.User)
	redirect(w, r, fmt.Sprintf("/?view=issue&id=%d", issue.ID))
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	rawID := r.PostFormValue("issue_id")
	id, err := cast.ToIntE(strings.TrimSpace(rawID))
	if err != nil {
		writeText(w, http.StatusNotFound, "Issue not found")
		return
	}

	in := tracker.NewComment{Body: r.PostFormValue("comment"), Author: rc.User}
	if err := in.Validate(); err != nil {
		p := s.newPage(r, "issue")
		p.Error = err.Error()
		p.Form.Comment = in.Body
		s.renderIssue(w, r, failStatus(err), rawID, p)
		return
	}
	if _, err := s.tracker.GetIssue(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	key, err := s.saveUpload(r, rc.User)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in.Attachment = key

	if _, err := s.tracker.AddComment(r.Context(), id, in); err != nil {
		s.discardUpload(r, key)
		s.fail(w, r, err)
		return
	}
	redirect(w, r, fmt.Sprintf("/?view=issue&id=%d", id))
}

func (s *Server) updateState(w http.ResponseWriter, r *http.Request) {
	rawID := r.PostFormValue("issue_id")
	id, err := cast.ToIntE(strings.TrimSpace(rawID))
	if err != nil {
		writeText(w, http.StatusNotFound, "Issue not found")
		return
	}

	err = s.tracker.UpdateState(r.Context(), id, models.State(r.PostFormValue("state")))
	switch {
	case errors.Is(err, tracker.ErrInvalid):
		p := s.newPage(r, "issue")
		p.Error = err.Error()
		s.renderIssue(w, r, failStatus(err), rawID, p)
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	redirect(w, r, fmt.Sprintf("/?view=issue&id=%d", id))
}

func (s *Server) importTickets(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	text := r.PostFormValue("tickets_text")
	category := r.PostFormValue("default_category")

	p := s.newPage(r, "import_tickets")
	p.Form = form{Category: category, TicketsText: text}

	res, err := s.tracker.ImportIssues(r.Context(), text, models.Category(category), rc.User)
	if errors.Is(err, tracker.ErrInvalid) {
		p.Error = err.Error()
		s.viewImport(w, r, failStatus(err), p)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("tickets imported", "count", res.Count(), "errors", len(res.Errors), "user", rc.User)
	p.Import = res
	if res.Count() > 0 {
		p.Form.TicketsText = ""
	}
	s.viewImport(w, r, http.StatusOK, p)
}
