package mqtt

import "fmt"

// TopicPrefix is the root of every topic the controller uses.
const TopicPrefix = "fbp"

// Topics builds the topics for one site.
//
//	topics := mqtt.Topics{Site: "fbp-001"}
//	topics.Status() // "fbp/fbp-001/status"
type Topics struct {
	Site string
}

// Status is the retained online/offline topic, also used for the LWT.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.Site)
}

// ButtonEvent is where button events are published.
func (t Topics) ButtonEvent() string {
	return fmt.Sprintf("%s/%s/event/button", TopicPrefix, t.Site)
}

// Hall is where hall readings are published.
func (t Topics) Hall() string {
	return fmt.Sprintf("%s/%s/hall", TopicPrefix, t.Site)
}

// Command is where remote console commands arrive.
func (t Topics) Command() string {
	return fmt.Sprintf("%s/%s/command", TopicPrefix, t.Site)
}

// CommandReply is where the output of remote commands is published.
func (t Topics) CommandReply() string {
	return fmt.Sprintf("%s/%s/command/reply", TopicPrefix, t.Site)
}

// All matches every topic of the site.
func (t Topics) All() string {
	return fmt.Sprintf("%s/%s/#", TopicPrefix, t.Site)
}
