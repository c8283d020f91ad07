package lightset

import "fmt"

// Stats counts manager activity since construction. Capacity exhaustion is
// only observable here, through Dropped.
type Stats struct {
	Admitted      uint64 // appended into a free slot
	Replaced      uint64 // admitted by evicting a farther light
	Refreshed     uint64
	Dropped       uint64 // candidates farther than every resident of a full set
	Rejected      uint64 // malformed records
	Exits         uint64
	Uploads       uint64
	UploadErrors  uint64
	BytesUploaded uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("admitted=%d replaced=%d refreshed=%d dropped=%d rejected=%d exits=%d uploads=%d upload_errors=%d bytes=%d",
		s.Admitted, s.Replaced, s.Refreshed, s.Dropped, s.Rejected, s.Exits, s.Uploads, s.UploadErrors, s.BytesUploaded)
}
