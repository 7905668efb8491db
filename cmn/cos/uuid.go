// Package cos: connection/subscription ID generation, following
// cmn/cos's GenUUID pattern: a shortid-backed generator with a
// tie-break so IDs never start or end with a character that reads
// badly in log lines, plus an xxhash-backed helper for the
// symbol-table shard key.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

const (
	// alphabet for generated IDs: the same 64 characters as
	// shortid.DefaultABC in a different order (GenConnID patches IDs
	// that start or end with a character that reads poorly)
	idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

	// LenConnID is the length of a generated connection ID, per
	// https://github.com/teris-io/shortid#id-length
	LenConnID = 9
)

var (
	sid  *shortid.Shortid
	rtie uint32
)

func init() {
	sid = shortid.MustNew(1 /*worker*/, idABC, 1)
}

// GenConnID returns a short, log-friendly connection identifier used in
// log lines and stats labels.
func GenConnID() string {
	uuid := sid.MustGenerate()
	var h, t string
	if c := uuid[0]; !isAlpha(c) {
		h = string(rune('A' + genTie()%26))
	}
	if c := uuid[len(uuid)-1]; c == '-' || c == '_' {
		t = string(rune('a' + genTie()%26))
	}
	return h + uuid + t
}

func genTie() int {
	return int(atomic.AddUint32(&rtie, 1))
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// SymbolHash64 hashes a symbol string for the subscription manager's
// sharded symbol table (see subs.SymbolTable).
func SymbolHash64(symbol string) uint64 {
	return xxhash.Checksum64S([]byte(symbol), 0)
}
