package operator

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/uuid"

	"github.com/bank-melli/commission/internal/cmd/base"
	"github.com/bank-melli/commission/pkg/numbering"
)

type NextNumberCommand struct {
	*base.Command

	flagConfig string
	flagScheme string
	flagPerson string
}

func (c *NextNumberCommand) Synopsis() string {
	return "Show the next document number of a scope"
}

func (c *NextNumberCommand) Help() string {
	return `Usage: commission operator next-number [options]

  This command prints the number the next document of a scheme would
  receive now. Nothing is reserved. Case numbers are scoped by the insured
  person's personnel code, so -person is required for the case scheme.` +
		c.Flags().Help()
}

func (c *NextNumberCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("next-number", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the HCL config file",
	)
	f.StringVar(
		&c.flagScheme, "scheme", numbering.SchemeCase,
		"Numbering scheme (case, social_work_case, referral_letter).",
	)
	f.StringVar(
		&c.flagPerson, "person", "",
		"Insured person id. Required for the case scheme.",
	)

	return f
}

func (c *NextNumberCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	var personID uuid.UUID
	if c.flagScheme == numbering.SchemeCase {
		if c.flagPerson == "" {
			c.UI.Error("person flag is required for the case scheme")
			return 1
		}
		var err error
		if personID, err = uuid.Parse(c.flagPerson); err != nil {
			c.UI.Error(fmt.Sprintf("invalid person id: %v", err))
			return 1
		}
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	db, err := c.ConnectDB(cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	svc, err := c.NewService(cfg, db)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error initializing commission service: %v", err))
		return 1
	}

	ctx := context.Background()

	var next string
	switch c.flagScheme {
	case numbering.SchemeCase:
		next, err = svc.NextCaseNumber(ctx, personID)
	case numbering.SchemeSocialWorkCase:
		next, err = svc.NextSocialWorkCaseNumber(ctx)
	case numbering.SchemeReferralLetter:
		next, err = svc.NextReferralLetterNumber(ctx)
	default:
		c.UI.Error(fmt.Sprintf("unknown scheme %q", c.flagScheme))
		return 1
	}
	if err != nil {
		c.UI.Error(fmt.Sprintf("error computing next number: %v", err))
		return 1
	}

	c.UI.Output(next)
	return 0
}
