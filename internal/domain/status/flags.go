package status

import "math/bits"

// FlagWords is the packed "is this status active" bitmap. Word 0 covers ids
// 1-64, word 1 covers 65-128 and word 2 covers 129-192.
type FlagWords [3]uint64

// WordIndex returns which flag word holds the id.
func WordIndex(id ID) int {
	return int(id-1) / 64
}

// BitPosition returns the bit inside the flag word that holds the id.
func BitPosition(id ID) uint {
	return uint(id-1) % 64
}

// Flag returns the single-bit mask of the id inside its word.
func Flag(id ID) uint64 {
	return 1 << BitPosition(id)
}

// Set marks the id active. Ids outside 1..MaxID are ignored.
func (f *FlagWords) Set(id ID) {
	if !id.Valid() {
		return
	}
	f[WordIndex(id)] |= Flag(id)
}

// Clear marks the id inactive. Ids outside 1..MaxID are ignored.
func (f *FlagWords) Clear(id ID) {
	if !id.Valid() {
		return
	}
	f[WordIndex(id)] &^= Flag(id)
}

// Has reports whether the id bit is set.
func (f FlagWords) Has(id ID) bool {
	if !id.Valid() {
		return false
	}
	return f[WordIndex(id)]&Flag(id) != 0
}

// IDs lists the active ids in ascending order.
func (f FlagWords) IDs() []ID {
	var ids []ID
	for w, word := range f {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			ids = append(ids, ID(w*64+bit+1))
			word &^= 1 << uint(bit)
		}
	}
	return ids
}

// InvertFlag recovers the status id from a single-bit flag word value.
// The contract is defined for single-bit inputs only; zero or multi-bit
// values are a caller error and return ErrMultiBit.
func InvertFlag(word uint64, wordIndex int) (ID, error) {
	if wordIndex < 0 || wordIndex > 2 {
		return None, newError(CodeOutOfRange, None, nil)
	}
	if bits.OnesCount64(word) != 1 {
		return None, newError(CodeMultiBit, None, nil)
	}
	// highest set bit index + 1, offset by the word
	return ID(wordIndex*64 + bits.Len64(word)), nil
}
