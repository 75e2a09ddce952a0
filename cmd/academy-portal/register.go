package main

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/noah-isme/academy-portal/internal/dto"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
)

var registerForm dto.RegistrationForm

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Submit a course registration",
	Long:  "Validates the form locally, then submits it to the academy backend.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logr)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		if res := a.registrations.Validate(registerForm); !res.OK {
			printFieldErrors(cmd, res.FieldErrors)
			return appErrors.Validation("validation failed", res.FieldErrors)
		}

		result, err := a.registrations.Submit(ctx, uuid.NewString(), registerForm)
		if err != nil {
			if appErr := appErrors.FromError(err); len(appErr.Fields) > 0 {
				printFieldErrors(cmd, appErr.Fields)
			}
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nregistration %s (%s)\n",
			result.Notice, result.Registration.ID, result.Registration.Status)
		return err
	},
}

func init() {
	f := registerCmd.Flags()
	f.StringVar(&registerForm.FullName, "name", "", "full name")
	f.StringVar(&registerForm.Phone, "phone", "", "mobile number, e.g. 0521234567")
	f.StringVar(&registerForm.CourseID, "course", "", "course id")
	f.StringVar(&registerForm.LevelID, "level", "", "level id")
	f.StringVar(&registerForm.Notes, "notes", "", "optional notes")
}

func printFieldErrors(cmd *cobra.Command, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", name, fields[name])
	}
}
