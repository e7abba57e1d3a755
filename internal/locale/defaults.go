package locale

// Defaults returns the dictionaries written on first run.
func Defaults() Dictionaries {
	return Dictionaries{
		"fr": {
			"login":               "Connexion",
			"logout":              "Déconnexion",
			"username":            "Nom d'utilisateur",
			"password":            "Mot de passe",
			"submit":              "Valider",
			"home":                "Accueil",
			"new_issue":           "Nouveau ticket",
			"issues":              "Tickets",
			"issue":               "Ticket",
			"id":                  "ID",
			"date":                "Date",
			"category":            "Catégorie",
			"subject":             "Sujet",
			"description":         "Description",
			"state":               "État",
			"comments":            "Commentaires",
			"comment":             "Commentaire",
			"author":              "Auteur",
			"attachment":          "Pièce jointe",
			"add_comment":         "Ajouter un commentaire",
			"download":            "Télécharger",
			"new":                 "Nouveau",
			"in_process":          "En cours",
			"review":              "En révision",
			"done":                "Terminé",
			"bug":                 "Bug",
			"feature":             "Fonctionnalité",
			"support":             "Support",
			"improvement":         "Amélioration",
			"import":              "Importer",
			"import_tickets":      "Importer des tickets",
			"import_help":         "Un ticket par ligne : sujet;description (la description est facultative).",
			"next_id":             "Prochain ID",
			"imported":            "Tickets importés",
			"errors":              "Erreurs",
			"update_state":        "Changer l'état",
			"no_issues":           "Aucun ticket",
			"issue_not_found":     "Ticket introuvable",
			"invalid_credentials": "Identifiants invalides",
			"operation_failed":    "L'opération a échoué",
		},
		"en": {
			"login":               "Login",
			"logout":              "Logout",
			"username":            "Username",
			"password":            "Password",
			"submit":              "Submit",
			"home":                "Home",
			"new_issue":           "New Issue",
			"issues":              "Issues",
			"issue":               "Issue",
			"id":                  "ID",
			"date":                "Date",
			"category":            "Category",
			"subject":             "Subject",
			"description":         "Description",
			"state":               "State",
			"comments":            "Comments",
			"comment":             "Comment",
			"author":              "Author",
			"attachment":          "Attachment",
			"add_comment":         "Add Comment",
			"download":            "Download",
			"new":                 "New",
			"in_process":          "In Process",
			"review":              "Review",
			"done":                "Done",
			"bug":                 "Bug",
			"feature":             "Feature",
			"support":             "Support",
			"improvement":         "Improvement",
			"import":              "Import",
			"import_tickets":      "Import tickets",
			"import_help":         "One ticket per line: subject;description (description is optional).",
			"next_id":             "Next ID",
			"imported":            "Imported tickets",
			"errors":              "Errors",
			"update_state":        "Update state",
			"no_issues":           "No issues",
			"issue_not_found":     "Issue not found",
			"invalid_credentials": "Invalid credentials",
			"operation_failed":    "Operation failed",
		},
	}
}
