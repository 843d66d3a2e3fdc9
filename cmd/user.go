package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/utils"
	"github.com/spf13/cobra"
)

type userInput struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,e164"`
	IDNumber    string `json:"idNumber"`
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage purchaser records",
	}

	var in userInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a purchaser",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.NewValidator().Struct(in); err != nil {
				if verrs, ok := err.(validator.ValidationErrors); ok {
					return fmt.Errorf("invalid user: %s", verrs.Error())
				}
				return err
			}

			models, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			u := &data.User{
				FirstName:   in.FirstName,
				LastName:    in.LastName,
				Email:       in.Email,
				PhoneNumber: in.PhoneNumber,
				IDNumber:    in.IDNumber,
			}
			if err := models.Users.Insert(context.Background(), u); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %d\n", u.ID)
			return nil
		},
	}

	f := add.Flags()
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVar(&in.Email, "email", "", "Email address")
	f.StringVar(&in.PhoneNumber, "phone", "", "Phone number in E.164 format")
	f.StringVar(&in.IDNumber, "id-number", "", "Government ID number")

	cmd.AddCommand(add)
	return cmd
}
