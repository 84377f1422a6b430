package models

// ModelsToAutoMigrate returns the models in dependency order. Used by tests
// and by "serve -auto-migrate"; deployments run commission-migrate instead.
func ModelsToAutoMigrate() []interface{} {
	return []interface{}{
		&InsuredPerson{}, // Must be first - cases reference it
		&Case{},
		&CaseTimeline{},
		&SocialWorkCase{},
		&ReferralLetter{},
		&IdentifierCounter{},
		&EventOutbox{},
	}
}
