package driver

import "crypto/sha256"

// Digest keys cached output by source content plus every option that
// shapes emission. Source hashing itself happens in the FileSet.
type Digest [32]byte

// combineDigest folds extra bytes into a content hash. extras arrive in a
// fixed order so equal inputs always key the same slot.
func combineDigest(content Digest, extras ...[]byte) Digest {
	h := sha256.New()
	h.Write(content[:])
	for _, e := range extras {
		h.Write(e)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
