package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"newsportal/internal/app"
	idb "newsportal/internal/infra/database"
	"newsportal/internal/infra/logger"

	"github.com/spf13/cobra"
)

func newAdminService(db *sql.DB) *app.AdminService {
	return app.NewAdminService(
		idb.NewPostgresCategoryRepository(db),
		idb.NewPostgresUserRepository(db),
		logger.Component("admin"),
	)
}

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage post categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			c, err := newAdminService(db).AddCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %d: %s\n", c.ID, c.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with subscriber counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := newAdminService(db).ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stats))
			for _, st := range stats {
				rows = append(rows, []string{strconv.FormatInt(st.Category.ID, 10), st.Category.Name, strconv.Itoa(st.Subscribers)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Subscribers"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))
			return nil
		},
	})

	return cmd
}

func newCreateSuperuserCommand(ctx *commandContext) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an account holding every permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := newAdminService(db).CreateSuperuser(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Login name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
