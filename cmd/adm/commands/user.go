package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"

	"github.com/spf13/cobra"
)

// userListPageSize is how many users each page fetch pulls when listing.
const userListPageSize = 100

// UserCommands returns the user management commands
func UserCommands(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the talent platform.

Available commands:
  list           - List all users
  create         - Create a new user
  reset-password - Reset password for a specific user`,
	}

	// Add subcommands
	userCmd.AddCommand(listCmd(userService, logger, databaseURL))
	userCmd.AddCommand(createCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))

	return userCmd
}

// listCmd returns the list command
func listCmd(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Long:  `List all users in the database with their basic information.`,
		RunE:  runListUsers(userService, logger, databaseURL),
	}
}

// createCmd returns the create command
func createCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	var email, name, role string
	var clientID, groupID int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Long:  `Create a new user. The password is prompted for on the terminal and never echoed.`,
		RunE:  runCreateUser(userService, logger, &email, &name, &role, &clientID, &groupID),
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Full name (required)")
	cmd.Flags().StringVar(&role, "role", models.RoleParticipant, "Role: admin or participant")
	cmd.Flags().IntVar(&clientID, "client", 0, "Client id the user belongs to")
	cmd.Flags().IntVar(&groupID, "group", 0, "Group id within the client")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// resetPasswordCmd returns the reset-password command
func resetPasswordCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [email]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a specific user. If the email is not provided, you will be prompted for it.`,
		RunE:  runResetPassword(userService, logger),
	}
}

// runListUsers returns a function that lists all users
func runListUsers(userService *services.UserService, logger *observability.Logger, databaseURL string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Show diagnostic information
		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("TALENTAPP_CONFIG_FILE"), "database_url": maskDatabaseURL(databaseURL)})

		var users []models.User
		for page := 1; ; page++ {
			batch, total, err := userService.GetUsersPaginated(ctx, page, userListPageSize)
			if err != nil {
				logger.Error(ctx, "Failed to get users", err, map[string]interface{}{"page": page})
				return contextutils.WrapError(err, "failed to get users")
			}
			users = append(users, batch...)
			if len(batch) == 0 || len(users) >= total {
				break
			}
		}

		if len(users) == 0 {
			logger.Info(ctx, "No users found in the database", nil)
			fmt.Println("No users found.")
			return nil
		}

		// Print header to stdout (user-facing table)
		fmt.Printf("%-5s %-30s %-25s %-12s %-8s %-8s %-10s\n", "ID", "Email", "Name", "Role", "Client", "Group", "Created")
		fmt.Println(strings.Repeat("-", 104))

		// Print each user
		for _, user := range users {
			client := "-"
			if user.ClientID.Valid {
				client = strconv.Itoa(int(user.ClientID.Int32))
			}

			group := "-"
			if user.GroupID.Valid {
				group = strconv.Itoa(int(user.GroupID.Int32))
			}

			fmt.Printf("%-5d %-30s %-25s %-12s %-8s %-8s %-10s\n",
				user.ID,
				user.Email,
				user.Name,
				user.Role,
				client,
				group,
				user.CreatedAt.Format("2006-01-02"),
			)
		}

		logger.Info(ctx, "Listed users", map[string]interface{}{"total": len(users)})
		return nil
	}
}

// runCreateUser returns a function that creates a new user
func runCreateUser(userService *services.UserService, logger *observability.Logger, email, name, role *string, clientID, groupID *int) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		password, err := promptPassword()
		if err != nil {
			return err
		}

		user := &models.User{Email: *email, Name: *name, Role: *role}
		if *clientID > 0 {
			user.ClientID = sql.NullInt32{Int32: int32(*clientID), Valid: true}
		}
		if *groupID > 0 {
			user.GroupID = sql.NullInt32{Int32: int32(*groupID), Valid: true}
		}

		created, err := userService.CreateUser(ctx, user, password)
		if err != nil {
			logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"email": *email})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create user '%s': %v", *email, err)
		}

		fmt.Printf("Created user '%s' (ID: %d)\n", created.Email, created.ID)
		logger.Info(ctx, "User created", map[string]interface{}{"email": created.Email, "user_id": created.ID, "role": created.Role})
		return nil
	}
}

// runResetPassword returns a function that resets a user's password
func runResetPassword(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var email string

		// Get email from args or prompt
		if len(args) > 0 {
			email = args[0]
		} else {
			fmt.Print("Enter email: ")
			if _, err := fmt.Scanln(&email); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read email: %v", err)
			}
		}

		if email == "" {
			return contextutils.ErrorWithContextf("email is required")
		}

		newPassword, err := promptPassword()
		if err != nil {
			return err
		}

		logger.Info(ctx, "Resetting password for user", map[string]interface{}{
			"email": email,
		})

		// Get user by email
		user, err := userService.GetUserByEmail(ctx, email)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"email": email})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user '%s': %v", email, err)
		}

		if user == nil {
			logger.Error(ctx, "User not found", nil, map[string]interface{}{"email": email})
			return contextutils.ErrorWithContextf("user '%s' not found", email)
		}

		// Update the password
		err = userService.UpdateUserPassword(ctx, user.ID, newPassword)
		if err != nil {
			logger.Error(ctx, "Failed to update password", err, map[string]interface{}{
				"email":   email,
				"user_id": user.ID,
			})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to update password for user '%s': %v", email, err)
		}

		fmt.Printf("Password successfully reset for user '%s' (ID: %d)\n", email, user.ID)
		logger.Info(ctx, "Password reset successful", map[string]interface{}{
			"email":   email,
			"user_id": user.ID,
		})

		return nil
	}
}

// promptPassword reads and confirms a password without echoing it
func promptPassword() (string, error) {
	fmt.Print("Enter new password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	// Confirm password
	fmt.Print("Confirm new password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password confirmation: %v", err)
	}
	fmt.Println() // New line after password input

	if password != string(confirmBytes) {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}

	return password, nil
}
