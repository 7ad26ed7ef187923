// Package descramble reverses the band scrambling applied to page images
package descramble

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ErrInvalidIdentifier is returned for negative album or photo identifiers.
var ErrInvalidIdentifier = fmt.Errorf("invalid identifier")

// ScrambleCutoff is the lowest album ID the site scrambles. Pages from
// older albums are delivered as-is.
const ScrambleCutoff = 220980

// segmentMap maps the hash-derived key (0-7) to the number of bands the
// image was cut into. The values are tied to the site's current
// scrambling scheme and change when the site updates it.
var segmentMap = [8]int{1, 2, 4, 5, 6, 7, 8, 9}

// Scrambled reports whether pages of the given album are scrambled at all.
func Scrambled(albumID int64) bool {
	return albumID >= ScrambleCutoff
}

// SegmentCount computes how many horizontal bands a page image was cut
// into. The count is derived from MD5(decimal(albumID) + decimal(photoID)):
// the value of the last hex digit, taken mod 8, keys the segment table.
func SegmentCount(albumID, photoID int64) (int, error) {
	if albumID < 0 {
		return 0, fmt.Errorf("%w: album id %d is negative", ErrInvalidIdentifier, albumID)
	}
	if photoID < 0 {
		return 0, fmt.Errorf("%w: photo id %d is negative", ErrInvalidIdentifier, photoID)
	}

	combined := strconv.FormatInt(albumID, 10) + strconv.FormatInt(photoID, 10)
	sum := md5.Sum([]byte(combined))
	digest := hex.EncodeToString(sum[:])

	// Last hex digit of the lowercase digest carries the key.
	last := digest[len(digest)-1]
	var digit int
	switch {
	case last >= '0' && last <= '9':
		digit = int(last - '0')
	default:
		digit = int(last-'a') + 10
	}

	return segmentMap[digit%8], nil
}
