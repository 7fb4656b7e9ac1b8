package establishment

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func homePage() templ.Component {
	return templ.Raw(`<!doctype html><html><head><meta charset="utf-8"><title>Xamu</title></head>` +
		`<body><main><h1>Xamu</h1><p>Open your establishment's address to sign in.</p></main></body></html>`)
}

// invitationPage is the redemption form. It posts back to action.
func invitationPage(v invitationView, action string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><title>Join `+
			templ.EscapeString(v.Tenant)+`</title></head><body><main><h1>Join `+
			templ.EscapeString(v.Tenant)+`</h1><p>This invitation was sent to `+
			templ.EscapeString(v.Email)+` and is valid until `+templ.EscapeString(v.ExpiresAt)+`.</p>`+
			`<form method="post" action="`+templ.EscapeString(action)+`">`+
			`<label>Name <input name="name" required maxlength="200"></label>`+
			`<label>Email <input type="email" name="email" required></label>`+
			`<label>Password <input type="password" name="password" required minlength="8" maxlength="128"></label>`+
			`<button type="submit">Create account</button></form></main></body></html>`)
		return err
	})
}
