// Package mqtt connects the controller to an MQTT broker.
//
// Topics are scoped by site ID:
//
//	fbp/{site}/status          retained online/offline status (and LWT)
//	fbp/{site}/event/button    button events
//	fbp/{site}/hall            hall readings (retained)
//	fbp/{site}/command         remote console commands
//	fbp/{site}/command/reply   command output
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Site.ID)
//	if err != nil {
//	    return fmt.Errorf("connecting to MQTT: %w", err)
//	}
//	defer client.Close()
//
//	err = client.SubscribeCommands(commander.Execute)
//
// Close publishes a retained "offline" status before disconnecting, so a
// graceful shutdown can be told apart from a crash (which leaves the LWT).
package mqtt
