package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/autoweb/agent/core"
)

// KeywordFileWatcher watches a keyword-list YAML file for edits and
// invokes onReload with whichever lists were non-empty each time the
// file is written, so an operator can retune continuation/store/RAG
// keyword lists on a running process without a restart. It does not
// hold a reference to any Config: the caller decides what to do with
// a reload (update the Config the node graph was built from, log it,
// both), since by the time a process is running, the keyword lists
// consulted by nodes may already have been copied out of Config.
type KeywordFileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  core.Logger
}

// onReloadFunc receives the continuation, store-KB, RAG-store, and
// RAG-ask keyword lists parsed from the file. Any list left empty in
// the file is passed as nil; callers should leave the corresponding
// setting unchanged in that case, matching WithKeywordFile's "only
// override lists actually present" behavior.
type onReloadFunc func(continuation, storeKB, ragStore, ragAsk []string)

// WatchKeywordFile starts watching path for writes and calls onReload
// with the parsed lists each time. Returns nil, nil if path is empty
// (nothing to watch).
func WatchKeywordFile(path string, onReload onReloadFunc, logger core.Logger) (*KeywordFileWatcher, error) {
	if path == "" {
		return nil, nil
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	kw := &KeywordFileWatcher{watcher: w, path: path, logger: logger}
	go kw.loop(onReload)
	return kw, nil
}

func (kw *KeywordFileWatcher) loop(onReload onReloadFunc) {
	for {
		select {
		case event, ok := <-kw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			kf, err := parseKeywordFile(kw.path)
			if err != nil {
				kw.logger.Warn("keyword file reload failed", map[string]interface{}{"path": kw.path, "error": err.Error()})
				continue
			}
			onReload(kf.ContinuationKeywords, kf.StoreKBKeywords, kf.RAGStoreKeywords, kf.RAGAskKeywords)
			kw.logger.Info("keyword file reloaded", map[string]interface{}{"path": kw.path})
		case err, ok := <-kw.watcher.Errors:
			if !ok {
				return
			}
			kw.logger.Warn("keyword file watch error", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Close stops the watcher. Safe to call on a nil *KeywordFileWatcher.
func (kw *KeywordFileWatcher) Close() error {
	if kw == nil {
		return nil
	}
	return kw.watcher.Close()
}
