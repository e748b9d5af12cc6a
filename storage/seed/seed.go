// Package seed reads timeline content from YAML files.
package seed

import (
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/lichsu/core/timeline"
	appfs "github.com/trezcool/lichsu/fs"
)

const (
	StagesFile = "stages.yaml"
	ExtrasFile = "extra_events.yaml"
	HiddenFile = "hidden.yaml"
)

// Files lists the files a seed directory may hold. Missing files count as empty.
var Files = []string{StagesFile, ExtrasFile, HiddenFile}

// Default returns the embedded seed content.
func Default() (timeline.Snapshot, error) {
	return LoadFS(appfs.FS, "seed")
}

// Load reads a seed directory.
func Load(dir string) (timeline.Snapshot, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads the seed files under dir. Stages without an id are skipped and
// events without an id get one derived from their position.
func LoadFS(fsys fs.FS, dir string) (timeline.Snapshot, error) {
	snap := timeline.Snapshot{
		Stages: []timeline.Stage{},
		Extras: []timeline.ExtraEvent{},
		Hidden: timeline.HiddenSet{},
	}

	docs, err := readList(fsys, path.Join(dir, StagesFile))
	if err != nil {
		return timeline.Snapshot{}, err
	}
	for _, doc := range docs {
		stg := timeline.DecodeStage(doc)
		if stg.ID == "" {
			continue
		}
		assignIDs(stg.ID+"-"+string(timeline.Domestic), stg.DomesticEvents)
		assignIDs(stg.ID+"-"+string(timeline.World), stg.WorldEvents)
		snap.Stages = append(snap.Stages, stg)
	}

	if docs, err = readList(fsys, path.Join(dir, ExtrasFile)); err != nil {
		return timeline.Snapshot{}, err
	}
	for i, doc := range docs {
		extra := timeline.DecodeExtraEvent(doc)
		if extra.ID == "" {
			extra.ID = "extra-" + strconv.Itoa(i+1)
		}
		snap.Extras = append(snap.Extras, extra)
	}

	raw, err := readFile(fsys, path.Join(dir, HiddenFile))
	if err != nil {
		return timeline.Snapshot{}, err
	}
	if raw != nil {
		snap.Hidden = timeline.DecodeHiddenIDs(raw)
	}
	return snap, nil
}

func assignIDs(prefix string, events []timeline.Event) {
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = prefix + "-" + strconv.Itoa(i+1)
		}
	}
}

// readList decodes a YAML sequence of mappings. Other items are ignored.
func readList(fsys fs.FS, name string) ([]timeline.Document, error) {
	raw, err := readFile(fsys, name)
	if err != nil || raw == nil {
		return nil, err
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Errorf("%s: expected a list", name)
	}
	docs := make([]timeline.Document, 0, len(list))
	for _, item := range list {
		if doc, ok := item.(map[string]interface{}); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func readFile(fsys fs.FS, name string) (interface{}, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	var raw interface{}
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	return raw, nil
}
