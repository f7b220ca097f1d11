package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate a share file",
	Flags: []cli.Flag{
		allowedEnvFlag(),
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "share",
			UsageText: "The share file to validate",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		filename := command.StringArg("share")
		if filename == "" {
			return fmt.Errorf("no share file provided")
		}

		logger = logger.With(zap.String("share_filename", filename))
		logger.Debug("validating share file")

		if _, err := loadShare(logger, filename, command.StringSlice("allowed-env")); err != nil {
			fmt.Println(err)
			return fmt.Errorf("share file '%s' is invalid", filename)
		}

		fmt.Printf("✓ Share file '%s' is valid\n", filename)
		return nil
	},
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("share file has %d validation error(s):", len(validationErrs)))
		for _, fe := range validationErrs {
			sb.WriteString(fmt.Sprintf("\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			if fe.Param() != "" {
				sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
			}
		}
		return errors.New(sb.String())
	}
	return err
}
