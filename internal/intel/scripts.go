package intel

import (
	"fmt"

	"apartmentiq/server/internal/models"
)

// ScriptGenerator renders negotiation message templates from a strategy. It
// sits behind an interface so localized or tone-adjusted template sets can
// replace the default without touching the scoring pipeline.
type ScriptGenerator interface {
	Generate(strategy models.NegotiationStrategy, unit *models.Unit) map[string]string
}

// TemplateScripts is the default English template set.
type TemplateScripts struct{}

func NewTemplateScripts() *TemplateScripts {
	return &TemplateScripts{}
}

func (t *TemplateScripts) Generate(strategy models.NegotiationStrategy, unit *models.Unit) map[string]string {
	scripts := make(map[string]string, 4)

	propertyName := unit.PropertyName
	if propertyName == "" {
		propertyName = "your property"
	}

	switch {
	case strategy.Score >= 8:
		leaseTerm := 15
		if strategy.Score >= 9 {
			leaseTerm = 12
		}
		scripts["opening"] = fmt.Sprintf(
			"I'm very interested in the unit at %s. I notice it's been available for %d days. "+
				"Given the extended market time, I'd like to discuss a mutually beneficial arrangement.",
			propertyName, unit.DaysOnMarket)
		scripts["offer"] = fmt.Sprintf(
			"I'm prepared to sign a lease immediately at $%.0f/month, with a %d-month lease term. "+
				"This reflects the current market conditions and would help you secure a reliable tenant quickly.",
			unit.CurrentPrice*0.90, leaseTerm)
	case strategy.Score >= 6:
		scripts["opening"] = fmt.Sprintf(
			"I'm interested in your unit at %s. I'm a qualified applicant ready to move quickly. "+
				"I'd like to discuss the terms.", propertyName)
		scripts["offer"] = fmt.Sprintf(
			"I can offer $%.0f/month with a standard lease term. I have excellent credit and rental "+
				"history, and can move in within a week.", unit.CurrentPrice*0.93)
	default:
		scripts["opening"] = fmt.Sprintf(
			"I'm very interested in the unit at %s. I'm a qualified applicant and would like to "+
				"submit an application.", propertyName)
		scripts["offer"] = "I'm prepared to pay the asking rent with a 12-month lease. I have strong " +
			"credentials and am ready to move forward quickly."
	}

	if strategy.Score >= 6 {
		scripts["concession_request"] = "Additionally, I'd like to discuss available move-in incentives. " +
			"Would you consider waiving the application fee and offering one month free rent?"
	} else {
		scripts["concession_request"] = "Are there any move-in specials or incentives currently available?"
	}

	scripts["closing"] = "I'm ready to submit my application today with all required documentation. " +
		"When would be a good time to finalize the details?"

	return scripts
}
