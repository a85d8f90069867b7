// Package views renders the HTML pages of the application.
package views

import (
	"net/http"
	"time"

	"github.com/goldyy12/files/auth"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 0; color: #1f2328; background: #f6f8fa; }
header { display: flex; justify-content: space-between; align-items: center; padding: 0.75rem 1.5rem; background: #24292f; color: #fff; }
header a, header button { color: #fff; }
main { max-width: 56rem; margin: 2rem auto; padding: 0 1rem; }
form.stack { display: flex; flex-direction: column; gap: 0.5rem; max-width: 24rem; }
form.inline { display: inline; }
.error { color: #cf222e; }
table { border-collapse: collapse; width: 100%; background: #fff; }
td, th { padding: 0.4rem 0.6rem; border-bottom: 1px solid #d0d7de; text-align: left; }
`

// Render writes node as a complete html response.
func Render(w http.ResponseWriter, status int, node Node) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return node.Render(w)
}

func page(title string, who *auth.Principal, body ...Node) Node {
	return Doctype(
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(Text(title+" | Files")),
				StyleEl(Raw(stylesheet)),
			),
			Body(
				header(who),
				Main(
					H1(Text(title)),
					Group(body),
				),
			),
		),
	)
}

func header(who *auth.Principal) Node {
	if who == nil {
		return Header(
			A(Href("/"), Strong(Text("Files"))),
			Nav(
				A(Href("/login"), Text("Log in")),
				Text(" "),
				A(Href("/sign-up"), Text("Sign up")),
			),
		)
	}
	return Header(
		A(Href("/"), Strong(Text("Files"))),
		Div(
			Span(Text("Signed in as "+who.DisplayName()+" ")),
			Form(Class("inline"), Method("post"), Action("/logout"),
				Button(Type("submit"), Text("Log out")),
			),
		),
	)
}

func flash(msg string) Node {
	return If(msg != "", P(Class("error"), Role("alert"), Text(msg)))
}

func field(label, name, kind, value string, attrs ...Node) Node {
	return Label(
		Text(label),
		Input(Type(kind), Name(name), Value(value), Required(), Group(attrs)),
	)
}

func submit(label string) Node {
	return Button(Type("submit"), Text(label))
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04")
}
