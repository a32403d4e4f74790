package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage ring administrators",
	}
	cmd.AddCommand(adminAddCommand())
	cmd.AddCommand(adminListCommand())
	return cmd
}

func adminAddCommand() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an administrator account",
		Long:  "Create an administrator account. Without --password the password is read from the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("read password from stdin: no input")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			svc, closeFn, err := openService(cmd.Context(), configFrom(cmd))
			if err != nil {
				return err
			}
			defer closeFn()

			a, err := svc.AddAdmin(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", a.Username, a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func adminListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List administrator accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd.Context(), configFrom(cmd))
			if err != nil {
				return err
			}
			defer closeFn()

			admins, err := svc.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range admins {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", a.ID, a.Username, a.Email, a.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
