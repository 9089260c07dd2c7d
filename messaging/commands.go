package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// CommandSender publishes device commands on their per-serial topics.
// Commands go out at QoS 2: a duplicated PICK is a physical incident.
type CommandSender struct {
	client *Client
}

var _ orders.CommandPublisher = (*CommandSender)(nil)

func NewCommandSender(client *Client) *CommandSender {
	return &CommandSender{client: client}
}

func (s *CommandSender) SendNavigation(nav *protocol.NavigationOrder) error {
	return s.client.PublishJSON(protocol.FtsOrderTopic(nav.SerialNumber), 2, nav)
}

func (s *CommandSender) SendManufacture(cmd *protocol.ManufactureOrder) error {
	return s.client.PublishJSON(protocol.ModuleOrderTopic(cmd.SerialNumber), 2, cmd)
}

// SendModuleInstantAction sends an out-of-band action to a module.
func (s *CommandSender) SendModuleInstantAction(serial string, cmd protocol.Command, meta map[string]string) error {
	return s.client.PublishJSON(protocol.ModuleInstantTopic(serial), 2, instantAction(serial, cmd, meta))
}

// SendFtsInstantAction sends an out-of-band action to a vehicle.
func (s *CommandSender) SendFtsInstantAction(serial string, cmd protocol.Command, meta map[string]string) error {
	return s.client.PublishJSON(protocol.FtsInstantTopic(serial), 2, instantAction(serial, cmd, meta))
}

func instantAction(serial string, cmd protocol.Command, meta map[string]string) *protocol.InstantAction {
	return &protocol.InstantAction{
		SerialNumber: serial,
		Actions: []protocol.InstantActionItem{
			{ID: uuid.New().String(), Command: cmd, Metadata: meta},
		},
		Timestamp: time.Now(),
	}
}
