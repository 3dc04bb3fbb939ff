package ai

import "encoding/json"

// Schema is the subset of JSON Schema accepted by OpenAI structured outputs.
type Schema struct {
	// Name identifies the schema in the response_format request.
	Name string `json:"-"`

	Type                 string             `json:"type"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	Description          string             `json:"description,omitempty"`
	AdditionalProperties bool               `json:"additionalProperties"`
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	type alias Schema
	return json.Marshal((*alias)(s))
}

// TransferSchema extracts the payout address of a shill submission.
var TransferSchema = &Schema{
	Name: "token_transfer",
	Type: "object",
	Properties: map[string]*Schema{
		"userAddress": {
			Type:        "string",
			Description: "Recipient wallet address; empty when none is given",
		},
	},
	AdditionalProperties: false,
}

// CampaignSchema extracts the fields of a campaign proposal.
var CampaignSchema = &Schema{
	Name: "campaign_info",
	Type: "object",
	Properties: map[string]*Schema{
		"name": {
			Type:        "string",
			Description: "Token name",
		},
		"token": {
			Type:        "string",
			Description: "Token symbol, usually prefixed with $",
		},
		"slogan": {
			Type:        "string",
			Description: "Campaign slogan or tagline",
		},
		"bounty": {
			Type:        "string",
			Description: "Bounty amount with unit, e.g. 100SOL",
		},
		"duration": {
			Type:        "string",
			Description: "Campaign duration in seconds",
		},
	},
	AdditionalProperties: false,
}
