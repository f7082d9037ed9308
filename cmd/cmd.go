// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/cardx/internal/formatter"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (" + joinFormats() + ")",
		Value:   value,
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write output to a file instead of stdout",
	}
}

func joinFormats() string {
	s := ""
	for i, f := range formatter.Formats {
		if i > 0 {
			s += "|"
		}
		s += string(f)
	}
	return s
}

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and save the bearer token for this server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("CARDX_PASSWORD")},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account on the server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("CARDX_PASSWORD")},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved login for this server",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the saved login and check it against the server",
				Action: r.AuthStatus,
			},
		},
	}
}

// uploadsCommand handles PDF uploads and their flashcards
func uploadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "uploads",
		Aliases: []string{"up"},
		Usage:   "List and manage uploaded PDFs",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List one page of uploads",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Page number, starting at 1", Value: 1},
					&cli.IntFlag{Name: "page-size", Usage: "Uploads per page (default from config)"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by filename"},
					formatFlag(string(formatter.FormatTable)),
					outputFlag(),
				},
				Action: r.UploadsList,
			},
			{
				Name:      "show",
				Usage:     "Show the extracted text of an upload",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.UploadsShow,
			},
			{
				Name:      "cards",
				Usage:     "Export the flashcards generated for an upload",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{formatFlag(string(formatter.FormatText)), outputFlag()},
				Action:    r.UploadsCards,
			},
			{
				Name:  "export",
				Usage: "Export the flashcards of every finished upload into a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default: cardx_export_{epoch})"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only uploads whose filename matches"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent card fetches", Value: 4},
					&cli.BoolFlag{Name: "all", Usage: "Include uploads that are not done yet"},
					formatFlag(string(formatter.FormatMarkdown)),
				},
				Action: r.UploadsExport,
			},
			{
				Name:      "upload",
				Usage:     "Upload a PDF for flashcard generation",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "generate", Aliases: []string{"g"}, Usage: "Generate flashcards after uploading"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Generate and follow the upload until it finishes"},
				},
				Action: r.UploadsUpload,
			},
			{
				Name:      "generate",
				Aliases:   []string{"gen"},
				Usage:     "Generate flashcards for an uploaded PDF",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Follow status events until generation finishes"},
				},
				Action: r.UploadsGenerate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an upload and its flashcards",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.UploadsDelete,
			},
			{
				Name:  "clear",
				Usage: "Delete every upload",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deleting everything"},
				},
				Action: r.UploadsClear,
			},
		},
	}
}

// cardsCommand manages the flashcards of one upload
func cardsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cards",
		Usage: "List, add and delete flashcards",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "Print the flashcards of an upload",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{formatFlag(string(formatter.FormatText)), outputFlag()},
				Action:    r.UploadsCards,
			},
			{
				Name:      "add",
				Usage:     "Add a hand-written flashcard to an upload",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "question", Aliases: []string{"q"}, Usage: "Card question", Required: true},
					&cli.StringFlag{Name: "answer", Aliases: []string{"a"}, Usage: "Card answer", Required: true},
				},
				Action: r.CardsAdd,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete one flashcard by its id",
				Arguments: []cli.Argument{&cli.StringArg{Name: "card"}},
				Action:    r.CardsDelete,
			},
		},
	}
}

// apiCommand handles direct REST calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the REST API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output compact JSON"},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "JSON body to send", Required: true},
				},
				Action: r.APIPost,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.APIDelete,
			},
		},
	}
}

// watchCommand follows live status events
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print live upload status events and alerts until interrupted",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "upload", Usage: "Exit once this upload reaches a terminal status"},
			&cli.BoolFlag{Name: "json", Usage: "Print events as JSON lines"},
		},
		Action: r.Watch,
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive upload dashboard",
		Action:  r.TUI,
	}
}
