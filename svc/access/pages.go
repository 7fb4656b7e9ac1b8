package access

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

func page(title, body string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head><body><main><h1>`+
			templ.EscapeString(title)+`</h1><p>`+templ.EscapeString(body)+`</p></main></body></html>`)
		return err
	})
}

// NoSuchEstablishmentPage is shown for unknown and inactive tenants alike.
func NoSuchEstablishmentPage() templ.Component {
	return page("No such establishment", "The establishment you are looking for does not exist or is not available.")
}

func ForbiddenPage() templ.Component {
	return page("Access denied", "You do not have access to this page.")
}

func SignInRequiredPage() templ.Component {
	return page("Sign in required", "Please sign in to continue.")
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = c.Render(r.Context(), w)
}
