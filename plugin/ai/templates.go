package ai

import (
	"bytes"
	"os"
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// State is the data every prompt template is rendered with.
type State struct {
	AgentName             string
	AgentHandle           string
	CurrentPost           string
	FormattedConversation string
	RecentPosts           string

	// Set when the mention concerns a known campaign.
	CampaignName string
	Token        string
	Slogan       string
	Bounty       string
	Duration     int64
	PublicKey    string
	Started      bool
}

// Templates holds the prompt and reply templates, in text/template syntax.
type Templates struct {
	ShouldRespond  string `yaml:"should_respond"`
	AgentQuery     string `yaml:"agent_query"`
	Transfer       string `yaml:"transfer"`
	CampaignInfo   string `yaml:"campaign_info"`
	FundingRequest string `yaml:"funding_request"`

	parsed map[string]*template.Template
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() *Templates {
	t := &Templates{
		ShouldRespond:  defaultShouldRespondTemplate,
		AgentQuery:     defaultAgentQueryTemplate,
		Transfer:       defaultTransferTemplate,
		CampaignInfo:   defaultCampaignInfoTemplate,
		FundingRequest: defaultFundingRequestTemplate,
	}
	if err := t.parse(); err != nil {
		panic(err)
	}
	return t
}

// LoadTemplates overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadTemplates(path string) (*Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read templates file %s", path)
	}
	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, errors.Wrapf(err, "failed to parse templates file %s", path)
	}

	for _, pair := range []struct {
		dst *string
		src string
	}{
		{&t.ShouldRespond, override.ShouldRespond},
		{&t.AgentQuery, override.AgentQuery},
		{&t.Transfer, override.Transfer},
		{&t.CampaignInfo, override.CampaignInfo},
		{&t.FundingRequest, override.FundingRequest},
	} {
		if pair.src != "" {
			*pair.dst = pair.src
		}
	}
	if err := t.parse(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) parse() error {
	t.parsed = make(map[string]*template.Template)
	for name, text := range map[string]string{
		TemplateShouldRespond:  t.ShouldRespond,
		TemplateAgentQuery:     t.AgentQuery,
		TemplateTransfer:       t.Transfer,
		TemplateCampaignInfo:   t.CampaignInfo,
		TemplateFundingRequest: t.FundingRequest,
	} {
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
		if err != nil {
			return errors.Wrapf(err, "invalid %s template", name)
		}
		t.parsed[name] = tmpl
	}
	return nil
}

// Compose renders the named template with state.
func (t *Templates) Compose(name string, state State) (string, error) {
	tmpl, ok := t.parsed[name]
	if !ok {
		return "", errors.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", errors.Wrapf(err, "failed to render %s template", name)
	}
	return buf.String(), nil
}

// Template names accepted by Compose.
const (
	TemplateShouldRespond  = "should_respond"
	TemplateAgentQuery     = "agent_query"
	TemplateTransfer       = "transfer"
	TemplateCampaignInfo   = "campaign_info"
	TemplateFundingRequest = "funding_request"
)

const defaultShouldRespondTemplate = `# INSTRUCTIONS: Determine if {{.AgentName}} (@{{.AgentHandle}}) should respond to the message and participate in the conversation.

Response options are RESPOND, IGNORE and STOP.

{{.AgentName}} only takes part when a user asks it to promote or shill a token or coin; in that case it should RESPOND.
Messages that are irrelevant, very short or carry little information should be IGNORED.
If a user asks {{.AgentName}} to stop talking, or the conversation is concluded, {{.AgentName}} should STOP.
{{.AgentName}} is particularly sensitive about being annoying, so if there is any doubt, IGNORE.

{{.RecentPosts}}

Current post:
{{.CurrentPost}}

Thread of posts you are replying to:
{{.FormattedConversation}}

# INSTRUCTIONS: Respond with [RESPOND], [IGNORE] or [STOP] only.
`

const defaultAgentQueryTemplate = `# About {{.AgentName}} (@{{.AgentHandle}})
{{.AgentName}} runs token shilling campaigns on behalf of their creators.

# Campaign
Name: {{.CampaignName}}
Token: {{.Token}}
Slogan: {{.Slogan}}
Bounty: {{.Bounty}}
Duration: {{.Duration}} seconds
Funding address: {{.PublicKey}}
Status: {{if .Started}}active{{else}}waiting for funds{{end}}

{{.RecentPosts}}

Thread of posts you are replying to:
{{.FormattedConversation}}

Current post:
{{.CurrentPost}}

# Task: Answer the campaign creator in the voice of {{.AgentName}}. Keep it short, professional and compliance-focused. Use only the campaign facts above.
`

const defaultTransferTemplate = `Respond with a JSON markdown block containing only the extracted values. Use null for any values that cannot be determined.

Example response:
` + "```json" + `
{
  "userAddress": "BieefG47jAHCGZBxi2q87RDuHyGZyYC3vAzxpyu8pump"
}
` + "```" + `

{{.CurrentPost}}

Given the post above, extract the recipient wallet address for the bounty payout.
If no address is provided, respond with null.
`

const defaultCampaignInfoTemplate = `Respond with a JSON markdown block containing only the extracted values. Use null for any values that cannot be determined.

Example response:
` + "```json" + `
{
  "name": "Test Token",
  "token": "$USDC",
  "slogan": "best memecoin in solana",
  "bounty": "10SOL",
  "duration": "1024"
}
` + "```" + `

{{.CurrentPost}}

Thread of posts you are replying to:
{{.FormattedConversation}}

Given the posts above, extract or come up with the following information about the requested campaign:
- Token name
- Token symbol
- Campaign description or slogan
- Bounty amount with unit, usually in crypto, like 100SOL or 1000USDC
- Campaign duration in seconds, converted from any given time window
`

const defaultFundingRequestTemplate = `To start your campaign, please send {{.Bounty}} to:

{{.PublicKey}}

Campaign will activate automatically after funds are received. ⏳

🔒 Verify address carefully before sending.`
