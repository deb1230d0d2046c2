// Package analyser supervises the audio analyser as a child process.
//
// The lighting engine never analyses audio itself. It consumes analysis
// frames from MQTT, and on a small rig the analyser usually runs on the
// same box. When the config marks it as managed, the Supervisor starts
// it, forwards its output into the service log, and restarts it when it
// crashes or when the analysis topic goes quiet for longer than the
// watchdog allows.
//
// Restarts back off exponentially from RestartDelay to MaxRestartDelay.
// A run that stays up for StableAfter resets the backoff, so an analyser
// that crashes once a night restarts quickly every time.
//
// Run blocks until its context is cancelled, which makes it a good fit
// for an errgroup alongside the show runner:
//
//	sup, err := analyser.New(analyser.Config{
//	    Command:  "/usr/local/bin/graylux-analyser",
//	    Args:     []string{"--device", "hw:1"},
//	    Watchdog: 5 * time.Second,
//	}, func() error {
//	    if runner.Status().InputStale {
//	        return errors.New("no analysis frames")
//	    }
//	    return nil
//	})
//	g.Go(func() error { return sup.Run(gctx) })
package analyser
