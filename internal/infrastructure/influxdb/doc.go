// Package influxdb records show telemetry in InfluxDB v2.
//
// Two measurements are written:
//
//   - lux_frame: stabilised energy, master intensity, strobe level and the
//     committed key/emotion/strategy per sampled frame (tags: show, vibe,
//     key, emotion, strategy, source)
//   - lux_event: one point per show event (tags: show, kind, vibe)
//
// Writes go through the library's non-blocking batched API so a slow or
// absent server never stalls the render loop. The runner samples every
// Nth frame (show.publish_every) to keep the series at a sane rate.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Show.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Warn("influx write failed", "error", err) })
//	client.WriteFrame(influxdb.FrameSample{VibeID: "techno-club", Energy: 0.8})
package influxdb
