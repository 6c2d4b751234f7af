package document

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/example/vjdeck/internal/mapping"
)

func testDoc() *Document {
	d := Default()
	set := d.ActiveSet()
	set.Tracks = []*Track{
		{
			ID: "track_a", Name: "Intro", TrackSlot: 1,
			ChannelMappings: map[string]int{"1": 1, "2": 2, "3": 5},
			Modules: []ModuleInstance{
				{ID: "Sphere_1", Type: "Sphere"},
			},
			ModulesData: map[string]*InstanceData{
				"Sphere_1": {
					Methods: map[string][]MethodConfig{
						"2": {{Name: "pulse"}},
						"3": {{Name: "spin"}},
					},
				},
			},
		},
		{ID: "track_b", Name: "Drop", TrackSlot: 3, ChannelMappings: map[string]int{}, ModulesData: map[string]*InstanceData{}},
		{ID: "track_c", Name: "Outro", TrackSlot: 5, ChannelMappings: map[string]int{}, ModulesData: map[string]*InstanceData{}},
	}
	return d
}

func TestUpdateCopiesOnWrite(t *testing.T) {
	st := NewStore(testDoc(), false)
	before := st.Snapshot()
	after := st.Update(func(d *Document) {})
	if before == after {
		t.Fatal("update returned the same document pointer")
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("no-op update changed document content")
	}

	st.Update(func(d *Document) {
		d.ActiveSet().Tracks[0].Name = "Renamed"
	})
	if before.ActiveSet().Tracks[0].Name != "Intro" {
		t.Fatal("mutation leaked into an earlier snapshot")
	}
}

func TestOnChangeFires(t *testing.T) {
	st := NewStore(testDoc(), false)
	var got *Document
	st.OnChange(func(d *Document) { got = d })
	after := st.Update(func(d *Document) { d.Config.SequencerBPM = 90 })
	if got != after {
		t.Fatal("onChange did not receive the new snapshot")
	}
}

func TestAvailableTrackSlots(t *testing.T) {
	set := testDoc().ActiveSet()
	free := set.AvailableTrackSlots(mapping.InputMIDI)
	want := []int{2, 4, 6, 7, 8, 9, 10, 11, 12}
	if !reflect.DeepEqual(free, want) {
		t.Fatalf("free slots = %v, want %v", free, want)
	}
	free = set.AvailableTrackSlots(mapping.InputOSC)
	want = []int{2, 4, 6, 7, 8, 9, 10}
	if !reflect.DeepEqual(free, want) {
		t.Fatalf("osc free slots = %v, want %v", free, want)
	}
}

func TestAddTrackUsesLowestSlot(t *testing.T) {
	set := testDoc().ActiveSet()
	tr, err := set.AddTrack("Bridge", mapping.InputMIDI)
	if err != nil {
		t.Fatal(err)
	}
	if tr.TrackSlot != 2 {
		t.Fatalf("slot = %d, want 2", tr.TrackSlot)
	}
	if _, err := set.AddTrack("intro", mapping.InputMIDI); err != ErrNameTaken {
		t.Fatalf("duplicate name err = %v, want ErrNameTaken", err)
	}
	if _, err := set.AddTrack("   ", mapping.InputMIDI); err != ErrNameEmpty {
		t.Fatalf("blank name err = %v, want ErrNameEmpty", err)
	}
}

func TestAddTrackNoSlots(t *testing.T) {
	set := &Set{ID: "s", Name: "S"}
	for i := 0; i < 12; i++ {
		if _, err := set.AddTrack(string(rune('a'+i)), mapping.InputMIDI); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := set.AddTrack("overflow", mapping.InputMIDI); err != ErrNoSlots {
		t.Fatalf("err = %v, want ErrNoSlots", err)
	}
}

func TestValidateNameSelfRename(t *testing.T) {
	set := testDoc().ActiveSet()
	if err := set.ValidateTrackName("Intro", "track_a"); err != nil {
		t.Fatalf("renaming to own name should pass, got %v", err)
	}
	if err := set.ValidateTrackName("INTRO", "track_b"); err != ErrNameTaken {
		t.Fatalf("case-insensitive clash err = %v", err)
	}
}

func TestDeleteChannelCascades(t *testing.T) {
	tr := testDoc().ActiveSet().Tracks[0]
	tr.DeleteChannel(2)
	if _, ok := tr.ChannelMappings["2"]; ok {
		t.Fatal("channel mapping survived delete")
	}
	if _, ok := tr.ModulesData["Sphere_1"].Methods["2"]; ok {
		t.Fatal("per-channel methods survived delete")
	}
	if _, ok := tr.ModulesData["Sphere_1"].Methods["3"]; !ok {
		t.Fatal("unrelated channel methods were lost")
	}
}

func TestAddChannelLowestFree(t *testing.T) {
	tr := testDoc().ActiveSet().Tracks[0]
	ch, err := tr.AddChannel()
	if err != nil {
		t.Fatal(err)
	}
	if ch != 4 {
		t.Fatalf("channel = %d, want 4", ch)
	}
	for len(tr.ChannelMappings) < MaxChannels {
		if _, err := tr.AddChannel(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tr.AddChannel(); err == nil {
		t.Fatal("expected error past channel cap")
	}
}

func TestDeleteModuleRemovesData(t *testing.T) {
	tr := testDoc().ActiveSet().Tracks[0]
	if !tr.DeleteModule("Sphere_1") {
		t.Fatal("module not found")
	}
	if len(tr.Modules) != 0 || tr.ModulesData["Sphere_1"] != nil {
		t.Fatal("module instance or data left behind")
	}
}

func TestMethodsForChannel(t *testing.T) {
	tr := testDoc().ActiveSet().Tracks[0]
	got := tr.MethodsForChannel(3)
	if len(got) != 1 || got["Sphere_1"][0].Name != "spin" {
		t.Fatalf("methods for channel 3 = %v", got)
	}
	if len(tr.MethodsForChannel(9)) != 0 {
		t.Fatal("unbound channel should yield nothing")
	}
}

func TestLoadFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userData.json")

	good, _ := json.Marshal(testDoc())
	if err := os.WriteFile(path+BackupSuffix, good, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, res := Load(path)
	if !res.FromBackup || res.IsDefault {
		t.Fatalf("result = %+v, want FromBackup", res)
	}
	if doc.ActiveSet().Tracks[0].Name != "Intro" {
		t.Fatal("backup content not loaded")
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userData.json")
	doc, res := Load(path)
	if !res.IsDefault {
		t.Fatalf("result = %+v, want IsDefault", res)
	}
	if len(doc.Sets) != 1 || doc.ActiveSet() == nil {
		t.Fatal("default document malformed")
	}
	// The default must never reach disk.
	if err := Save(path, doc, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("default document was persisted")
	}
}

func TestSaveRefusesEmptySets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userData.json")
	if err := Save(path, testDoc(), false); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, &Document{}, false); err != nil {
		t.Fatal(err)
	}
	doc, res := Load(path)
	if res.IsDefault || len(doc.Sets) == 0 {
		t.Fatal("good file was overwritten by empty document")
	}
}

func TestSaveRefreshesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userData.json")
	first := testDoc()
	if err := Save(path, first, false); err != nil {
		t.Fatal(err)
	}
	second := testDoc()
	second.ActiveSet().Tracks[0].Name = "Changed"
	if err := Save(path, second, false); err != nil {
		t.Fatal(err)
	}
	backup, res := Load(path + BackupSuffix)
	if res.IsDefault {
		t.Fatal("backup missing after second save")
	}
	if backup.ActiveSet().Tracks[0].Name != "Intro" {
		t.Fatal("backup does not hold the previous good copy")
	}
}

func TestMigrateLegacyTracks(t *testing.T) {
	raw := []byte(`{
		"config": {"trackMappings": {"midi": {"1": 0, "2": 1}}, "input": {"type": "midi"}},
		"tracks": [{"id": "track_x", "name": "Old", "trackSlot": 1}]
	}`)
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	Migrate(&doc)
	if len(doc.Sets) != 1 || doc.Sets[0].ID != "set_1" {
		t.Fatalf("sets = %+v", doc.Sets)
	}
	if doc.Config.ActiveSetID != "set_1" {
		t.Fatalf("activeSetId = %q", doc.Config.ActiveSetID)
	}
	if doc.Tracks != nil {
		t.Fatal("legacy tracks field survived migration")
	}
	// Flat midi map deepens into pitchClass and keeps its values.
	if doc.Config.TrackMappings.MIDI.PitchClass["2"] != 1 {
		t.Fatalf("pitchClass = %v", doc.Config.TrackMappings.MIDI.PitchClass)
	}
	// Exact notes are seeded distinct and valid.
	seen := map[int]bool{}
	for slot, n := range doc.Config.TrackMappings.MIDI.ExactNote {
		if !mapping.ValidNote(n) || seen[n] {
			t.Fatalf("slot %s bad exact note %d", slot, n)
		}
		seen[n] = true
	}
	tr := doc.Sets[0].Tracks[0]
	if tr.ChannelMappings == nil || tr.ModulesData == nil {
		t.Fatal("track maps not initialized")
	}
}

func TestMigrateRepairsInput(t *testing.T) {
	doc := Document{Sets: []*Set{{ID: "s1", Name: "S"}}}
	Migrate(&doc)
	in := doc.Config.Input
	if in.Type != mapping.InputMIDI || in.NoteMatchMode != mapping.MatchPitchClass {
		t.Fatalf("input = %+v", in)
	}
	if in.TrackSelectionChannel != 1 || in.MethodTriggerChannel != 2 || in.Port != 8000 {
		t.Fatalf("input defaults = %+v", in)
	}
	if doc.Config.SequencerBPM != 120 {
		t.Fatalf("bpm = %v", doc.Config.SequencerBPM)
	}
}

func TestNormalizeUserColors(t *testing.T) {
	got := NormalizeUserColors([]string{" #FF00AA ", "#ff00aa", "red", "#123456", "#12345"})
	want := []string{"#ff00aa", "#123456"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("colors = %v, want %v", got, want)
	}
}

func TestSetUserColorsSyncsOptions(t *testing.T) {
	d := testDoc()
	d.ActiveSet().Tracks[0].ModulesData["Sphere_1"].Methods["2"][0].Options = []MethodOption{
		{Name: "color", RandomizeFromUserColors: true, RandomValues: []string{"#000000"}},
		{Name: "speed", RandomRange: []float64{0, 1}},
	}
	d.SetUserColors([]string{"#AABBCC", "#ddeeff"})
	opts := d.ActiveSet().Tracks[0].ModulesData["Sphere_1"].Methods["2"][0].Options
	if !reflect.DeepEqual(opts[0].RandomValues, []string{"#aabbcc", "#ddeeff"}) {
		t.Fatalf("palette not synced: %v", opts[0].RandomValues)
	}
	if opts[1].RandomRange == nil {
		t.Fatal("unrelated option was touched")
	}
}

func TestNormalizeOptionValue(t *testing.T) {
	min, max := 0.0, 10.0
	num := OptionSchema{Name: "speed", Type: "number", Min: &min, Max: &max, DefaultVal: 5.0}
	if got := NormalizeOptionValue(num, 42.0); got != 10.0 {
		t.Fatalf("clamp high = %v", got)
	}
	if got := NormalizeOptionValue(num, -3.0); got != 0.0 {
		t.Fatalf("clamp low = %v", got)
	}
	if got := NormalizeOptionValue(num, "nope"); got != 5.0 {
		t.Fatalf("non-number = %v", got)
	}
	sel := OptionSchema{Name: "shape", Type: "select", Values: []any{"cube", "sphere"}, DefaultVal: "cube"}
	if got := NormalizeOptionValue(sel, "pyramid"); got != "cube" {
		t.Fatalf("unknown select = %v", got)
	}
	col := OptionSchema{Name: "tint", Type: "color", DefaultVal: "#ffffff"}
	if got := NormalizeOptionValue(col, " #ABCDEF "); got != "#abcdef" {
		t.Fatalf("color = %v", got)
	}
	if got := NormalizeOptionValue(col, "blue"); got != "#ffffff" {
		t.Fatalf("bad color = %v", got)
	}
}

func TestNormalizeMethodConfigDropsRandomConflict(t *testing.T) {
	cfg := MethodConfig{Name: "pulse", Options: []MethodOption{{
		Name:         "speed",
		Value:        3.0,
		RandomRange:  []float64{0, 1},
		RandomValues: []string{"1", "2"},
	}}}
	def := MethodDef{Name: "pulse", Options: []OptionSchema{{Name: "speed", Type: "number", DefaultVal: 1.0}}}
	NormalizeMethodConfig(&cfg, def)
	if cfg.Options[0].RandomValues != nil {
		t.Fatal("conflicting randomValues kept")
	}
	if cfg.Options[0].RandomRange == nil {
		t.Fatal("randomRange dropped")
	}
}

func TestDeleteRecordingsForTracks(t *testing.T) {
	rec := RecordingDocument{Recordings: map[string][]Recording{
		"track_a": {{ID: "r1", Name: "Take 1"}},
		"track_b": {{ID: "r2", Name: "Take 2"}},
	}}
	out := DeleteRecordingsForTracks(rec, []string{"track_a"})
	if _, ok := out.Recordings["track_a"]; ok {
		t.Fatal("deleted track's recordings survived")
	}
	if len(out.Recordings["track_b"]) != 1 {
		t.Fatal("unrelated recordings were lost")
	}
	// Input untouched.
	if len(rec.Recordings["track_a"]) != 1 {
		t.Fatal("input document was mutated")
	}
}

func TestAppStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	in := AppState{ActiveSetID: "set_1", ActiveTrackID: "track_a", SequencerMuted: true}
	if err := SaveAppState(path, in); err != nil {
		t.Fatal(err)
	}
	if got := LoadAppState(path); got != in {
		t.Fatalf("state = %+v, want %+v", got, in)
	}
	if got := LoadAppState(filepath.Join(t.TempDir(), "missing.json")); got != (AppState{}) {
		t.Fatal("missing sidecar should yield zero state")
	}
}

func TestLoadEmptySetsFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userData.json")

	good, _ := json.Marshal(testDoc())
	if err := os.WriteFile(path+BackupSuffix, good, 0o644); err != nil {
		t.Fatal(err)
	}
	// Parses fine, but a document with no sets is unusable.
	if err := os.WriteFile(path, []byte(`{"config":{},"sets":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, res := Load(path)
	if !res.FromBackup || res.IsDefault {
		t.Fatalf("result = %+v, want FromBackup", res)
	}
	if len(doc.Sets) == 0 || doc.ActiveSet().Tracks[0].Name != "Intro" {
		t.Fatal("backup content not loaded")
	}
}

func TestLoadEmptySetsWithoutBackupYieldsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userData.json")
	if err := os.WriteFile(path, []byte(`{"config":{},"sets":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, res := Load(path)
	if !res.IsDefault {
		t.Fatalf("result = %+v, want IsDefault", res)
	}
	if len(doc.Sets) == 0 {
		t.Fatal("default document has no sets")
	}
}

func TestSetOps(t *testing.T) {
	d := Default()
	s, err := d.AddSet("Club Night")
	if err != nil || s == nil {
		t.Fatalf("add set: %v", err)
	}
	if len(d.Sets) != 2 {
		t.Fatalf("sets = %d", len(d.Sets))
	}
	if _, err := d.AddSet("club night"); err != ErrNameTaken {
		t.Fatalf("duplicate set name: %v", err)
	}
	if !d.ActivateSet(s.ID) || d.Config.ActiveSetID != s.ID {
		t.Fatal("activate failed")
	}
	if d.ActivateSet("nope") {
		t.Fatal("activated unknown set")
	}
	// Deleting the active set falls back to the first remaining one.
	if !d.DeleteSet(s.ID) {
		t.Fatal("delete failed")
	}
	if len(d.Sets) != 1 || d.Config.ActiveSetID != d.Sets[0].ID {
		t.Fatalf("after delete: %d sets, active %q", len(d.Sets), d.Config.ActiveSetID)
	}
	if d.DeleteSet(d.Sets[0].ID) {
		t.Fatal("deleted the last set")
	}
}

func TestRecordingsSidecarRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordings.json")

	empty := LoadRecordings(path)
	if empty.Recordings == nil || len(empty.Recordings) != 0 {
		t.Fatalf("missing file = %+v", empty)
	}

	rec := RecordingDocument{Recordings: map[string][]Recording{
		"track_a": {NewRecording("take one", 120)},
	}}
	if err := SaveRecordings(path, rec); err != nil {
		t.Fatal(err)
	}
	got := LoadRecordings(path)
	if len(got.Recordings["track_a"]) != 1 || got.Recordings["track_a"][0].Name != "take one" {
		t.Fatalf("round trip = %+v", got)
	}
}
