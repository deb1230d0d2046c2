// Package journal persists the show's event history in SQLite.
//
// Every vibe change, key commit, drop and effect the engine emits is
// recorded with the session that produced it, so an operator can review a
// night afterwards ("what fired during the 01:30 drop?"). Entries older
// than show.journal_retention_days are pruned at startup.
//
// The schema lives in the top-level migrations package.
package journal
