package voices

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads the roster whenever the roster file changes. It blocks until
// ctx is cancelled, so run it on its own goroutine. Editors that replace the
// file (rename+create) are handled by watching the parent directory.
func (r *Roster) Watch(ctx context.Context, path string, log zerolog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(path)
	log.Info().Str("path", target).Msg("watching voice roster")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.LoadFile(target); err != nil {
				log.Warn().Err(err).Msg("voice roster reload failed, keeping previous roster")
				continue
			}
			log.Info().Msg("voice roster reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("voice roster watcher error")
		}
	}
}
