package accesslog

import "fmt"

var (
	ErrEncodeRecord = fmt.Errorf("encoding access record failed")
	ErrDecodeRecord = fmt.Errorf("decoding access record failed")
	ErrStoreRecord  = fmt.Errorf("storing access record failed")
	ErrReadRecords  = fmt.Errorf("reading access records failed")
)
