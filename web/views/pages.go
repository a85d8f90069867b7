package views

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/drive"
	"github.com/goldyy12/files/store"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type (
	// SignUpForm echoes what the user typed, passwords are never echoed.
	SignUpForm struct {
		FirstName string
		LastName  string
		Email     string
	}
)

func Index(who *auth.Principal, folders []store.Folder) Node {
	if who == nil {
		return page("Welcome", nil,
			P(Text("Keep your files in folders only you can see.")),
			P(
				A(Href("/login"), Text("Log in")),
				Text(" or "),
				A(Href("/sign-up"), Text("create an account")),
				Text("."),
			),
		)
	}
	var list Node
	if len(folders) == 0 {
		list = P(Text("No folders yet."))
	} else {
		list = Ul(Map(folders, func(f store.Folder) Node {
			return Li(
				A(Href("/folders/"+f.ID), Text(f.Name)),
				Small(Text(" created "+formatTime(f.CreatedAt))),
			)
		}))
	}
	return page("Your folders", who,
		P(A(Href("/folders"), Text("New folder"))),
		list,
	)
}

func Login(email, msg string) Node {
	return page("Log in", nil,
		flash(msg),
		Form(Class("stack"), Method("post"), Action("/login"),
			field("Email", "email", "email", email, AutoComplete("username")),
			field("Password", "password", "password", "", AutoComplete("current-password")),
			submit("Log in"),
		),
		P(Text("No account? "), A(Href("/sign-up"), Text("Sign up"))),
	)
}

func SignUp(form SignUpForm, msg string) Node {
	return page("Sign up", nil,
		flash(msg),
		Form(Class("stack"), Method("post"), Action("/sign-up"),
			field("First name", "firstName", "text", form.FirstName),
			field("Last name", "lastName", "text", form.LastName),
			field("Email", "email", "email", form.Email, AutoComplete("username")),
			field("Password", "password", "password", "", AutoComplete("new-password")),
			field("Confirm password", "confirmPassword", "password", "", AutoComplete("new-password")),
			submit("Create account"),
		),
		P(Text("Already registered? "), A(Href("/login"), Text("Log in"))),
	)
}

func NewFolder(who *auth.Principal, name, msg string) Node {
	return page("New folder", who,
		flash(msg),
		Form(Class("stack"), Method("post"), Action("/folders"),
			field("Name", "name", "text", name, MaxLength("255")),
			submit("Create"),
		),
	)
}

func EditFolder(who *auth.Principal, f store.Folder, name, msg string) Node {
	if name == "" {
		name = f.Name
	}
	return page("Rename "+f.Name, who,
		flash(msg),
		Form(Class("stack"), Method("post"), Action("/folders/"+f.ID+"/edit"),
			field("Name", "name", "text", name, MaxLength("255")),
			submit("Save"),
		),
		P(A(Href("/folders/"+f.ID), Text("Back"))),
	)
}

func Folder(who *auth.Principal, v *drive.FolderView) Node {
	base := "/folders/" + v.ID
	var files Node
	if len(v.Files) == 0 {
		files = P(Text("This folder is empty."))
	} else {
		files = Table(
			THead(Tr(Th(Text("Name")), Th(Text("Type")), Th(Text("Size")), Th(Text("Uploaded")), Th())),
			TBody(Map(v.Files, func(f store.File) Node {
				fileBase := base + "/files/" + f.ID
				return Tr(
					Td(A(Href(fileBase+"/download"), Text(f.Name))),
					Td(Text(f.MimeType)),
					Td(Text(humanize.IBytes(uint64(f.SizeBytes)))),
					Td(Text(formatTime(f.CreatedAt))),
					Td(Form(Class("inline"), Method("post"), Action(fileBase+"/delete"),
						Button(Type("submit"), Text("Delete")),
					)),
				)
			})),
		)
	}
	return page(v.Name, who,
		P(
			A(Href(base+"/createfile"), Text("Upload a file")),
			Text(" | "),
			A(Href(base+"/edit"), Text("Rename")),
			Text(" | "),
			A(Href("/"), Text("All folders")),
		),
		files,
		Form(Method("post"), Action(base+"/delete"),
			Button(Type("submit"), Text("Delete folder")),
		),
	)
}

func UploadForm(who *auth.Principal, f store.Folder, maxSize int64, msg string) Node {
	return page("Upload to "+f.Name, who,
		flash(msg),
		Form(Class("stack"), Method("post"), Action("/folders/"+f.ID+"/upload"), Attr("enctype", "multipart/form-data"),
			Label(
				Text(fmt.Sprintf("File (up to %v)", humanize.IBytes(uint64(maxSize)))),
				Input(Type("file"), Name("file"), Required()),
			),
			submit("Upload"),
		),
		P(A(Href("/folders/"+f.ID), Text("Back"))),
	)
}

// Error is the generic failure page, message must be safe to show.
func Error(who *auth.Principal, status int, message string) Node {
	if message == "" {
		message = http.StatusText(status)
	}
	return page(http.StatusText(status), who,
		P(Text(message)),
		P(A(Href("/"), Text("Back to your folders"))),
	)
}
