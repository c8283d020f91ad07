package lightset

// UploadSink receives packed light data once per frame when it changed.
// Upload overwrites previous contents; consumers honor each set's Count and
// ignore trailing slots. Release frees any backing resources.
type UploadSink interface {
	Upload(snap *Snapshot) error
	Release()
}

// MemorySink keeps the last uploaded snapshot in memory. It backs headless
// runs and tests.
type MemorySink struct {
	Last     Snapshot
	Uploads  int
	Releases int
}

func (s *MemorySink) Upload(snap *Snapshot) error {
	s.Last = snap.Clone()
	s.Uploads++
	return nil
}

func (s *MemorySink) Release() {
	s.Releases++
}
