// Package mqtt connects the lighting engine to the rig's MQTT bus.
//
// The broker sits between the audio analyser, the engine and whatever
// renders intents onto fixtures:
//
//	analyser → graylux/analysis → engine → graylux/intent → renderer
//	                                      → graylux/event/{kind}
//	operator → graylux/control/{vibe,strike,abort,consciousness}
//
// The client publishes a retained online status on {prefix}/system/status
// and registers an LWT there, so renderers can blackout when the engine
// disappears. Subscriptions survive reconnects.
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.Topics.Prefix, cfg.Topics.Analysis)
//	client, err := mqtt.Connect(cfg.MQTT, topics, cfg.Show.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.Analysis(), 0, func(topic string, payload []byte) error {
//	    return runner.HandleAnalysis(payload)
//	})
package mqtt
