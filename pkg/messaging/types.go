package messaging

import (
	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/types"
)

type ChangeTopic string

const (
	CampaignSaved  ChangeTopic = "campaign_saved"
	OptionsChanged ChangeTopic = "options_changed"
)

// Routing keys on the campaign_saved exchange.
const (
	RouteCreated = "campaign.created"
	RouteUpdated = "campaign.updated"
)

type CampaignSavedMessage struct {
	ID       int64                      `json:"id"`
	Created  bool                       `json:"created"`
	Criteria *criteria.CampaignCriteria `json:"criteria"`
}

func (m CampaignSavedMessage) RoutingKey() string {
	if m.Created {
		return RouteCreated
	}
	return RouteUpdated
}

type RabbitConfig struct {
	Url    string
	Prefix string
}

func decodeOptions(body []byte) (*types.CampaignOptions, error) {
	opts := &types.CampaignOptions{}
	if err := jsoncompat.Unmarshal(body, opts); err != nil {
		return nil, err
	}
	return opts, nil
}
