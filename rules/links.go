package rules

import (
	"fmt"
	"strings"

	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/scamcheck"
)

var _ engine.MessageRuleFunc = LinkScamMessageRule

// LinkScamMessageRule resolves any URLs in the message against the threat
// intel service. Confirmed threats are heavily weighted and the offending
// message is requested for deletion regardless of which enforcement tier
// the score lands on.
func LinkScamMessageRule(c *engine.MessageContext) error {
	if !c.Policy.LinkScamEnabled {
		return nil
	}
	urls := scamcheck.ExtractURLs(c.Message.Text)
	if len(urls) == 0 {
		return nil
	}

	threats := c.CheckThreatURLs(urls)
	if len(threats) == 0 {
		return nil
	}

	var hits []string
	for url, bad := range threats {
		if bad {
			hits = append(hits, url)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	c.AddViolation(ledger.KindLinkScam, c.Policy.LinkScamWeight, fmt.Sprintf("threat-listed URLs: %s", strings.Join(hits, " ")))
	c.AddUserFlag("link-scam")
	c.Increment("link-scam", c.Message.GuildID)
	c.RequestDeleteMessage()
	return nil
}
