package segment

import (
	"bytes"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/index"
)

// AssignIDs numbers entries 1..N in their current order. Callers pass the
// word-sorted output of index.Build or Builder.Snapshot; the order is not re-checked here.
func AssignIDs(entries []index.WordEntry) {
	for i := range entries {
		entries[i].WordID = i + 1
	}
}

// Encode renders the postings and dictionary files. Each postings line is
// "(<word_id>,[<doc>,<doc>,...])" and each dictionary line is
// "<word> <word_id>". Lines are separated by '\n' with no trailing newline.
func Encode(entries []index.WordEntry) (postings []byte, dictionary []byte) {
	var pb, db bytes.Buffer
	for i, e := range entries {
		if i > 0 {
			pb.WriteByte('\n')
			db.WriteByte('\n')
		}
		pb.Write(AppendPostingLine(nil, e))
		db.Write(AppendDictionaryLine(nil, e))
	}
	return pb.Bytes(), db.Bytes()
}

// AppendPostingLine appends the postings line for e to dst.
func AppendPostingLine(dst []byte, e index.WordEntry) []byte {
	dst = append(dst, '(')
	dst = strconv.AppendInt(dst, int64(e.WordID), 10)
	dst = append(dst, ',', '[')
	for i, id := range e.DocIDs {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(id), 10)
	}
	return append(dst, ']', ')')
}

// AppendDictionaryLine appends the dictionary line for e to dst.
func AppendDictionaryLine(dst []byte, e index.WordEntry) []byte {
	dst = append(dst, e.Word...)
	dst = append(dst, ' ')
	return strconv.AppendInt(dst, int64(e.WordID), 10)
}
