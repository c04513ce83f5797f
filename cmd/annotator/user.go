package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/config"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/database"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/mailer"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
	}
	cmd.AddCommand(newUserCreateCmd(), newUserListCmd())
	return cmd
}

// openRepos opens the configured database for one-shot commands.
func openRepos(cfg *config.Config) (*database.Repos, func(), error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return database.NewRepos(db, nil), func() { database.Close(db) }, nil
}

func newUserCreateCmd() *cobra.Command {
	var username, email, password, role string
	var notify bool

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a registered user",
		Example: `  annotator user create --username alice --email alice@example.com --password s3cret-pass --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" || email == "" {
				return errors.New("--username and --email are required")
			}
			if !models.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repos, cleanup, err := openRepos(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := repos.Users.Create(username, email, hash, role)
			if errors.Is(err, database.ErrConflict) {
				return fmt.Errorf("username %q is taken", username)
			}
			if err != nil {
				return errors.Wrap(err, "creating user")
			}
			if err := repos.Audit.Append(u.ID, "user_created", "cli"); err != nil {
				pterm.Warning.Printf("Audit log not written: %v\n", err)
			}

			pterm.Success.Printf("User created: %s (%s, %s)\n", u.Username, u.Role, u.ID)

			if notify {
				mail, err := mailer.New(mailer.SMTPConfig{
					Host:     cfg.Mail.Host,
					Port:     cfg.Mail.Port,
					Username: cfg.Mail.Username,
					Password: cfg.Mail.Password,
					From:     cfg.Mail.From,
				}, cfg.App.Name)
				if err != nil {
					return err
				}
				err = mail.Send(mailer.KindWelcome, u.Email, mailer.WelcomeData{
					AppName:  cfg.App.Name,
					Username: u.Username,
					Role:     u.Role,
					BaseURL:  cfg.GetBaseUrl(),
				})
				if err != nil {
					return errors.Wrap(err, "sending welcome email")
				}
				pterm.Info.Printf("Welcome email sent to %s\n", u.Email)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&username, "username", "u", "", "login name (required)")
	f.StringVarP(&email, "email", "e", "", "email address (required)")
	f.StringVarP(&password, "password", "p", "", fmt.Sprintf("password, at least %d characters", auth.MinPasswordLength))
	f.StringVarP(&role, "role", "r", models.RoleAnnotator, "admin, reviewer or annotator")
	f.BoolVar(&notify, "notify", false, "send a welcome email")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repos, cleanup, err := openRepos(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			users, err := repos.Users.List()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				pterm.Info.Println("No users yet. Create one with 'annotator user create'.")
				return nil
			}

			data := pterm.TableData{{"ID", "Username", "Email", "Role", "Active"}}
			for _, u := range users {
				active := pterm.FgGreen.Sprint("yes")
				if !u.IsActive {
					active = pterm.FgRed.Sprint("no")
				}
				data = append(data, []string{u.ID, u.Username, u.Email, u.Role, active})
			}
			return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
		},
	}
}
