package slp

// TopicManagerDocumentation describes which outputs the SLP topic manager admits.
const TopicManagerDocumentation = `# SLP Topic Manager

**Protocol Name**: SLP (Simple Ledger Protocol)
**Topic**: ` + "`tm_slp`" + `

---

## Overview

The SLP Topic Manager admits the outputs of a transaction that carry SLP tokens. The token instructions live in an ` + "`OP_RETURN`" + ` output whose data pushes are:

| Field | Content |
|-------|---------|
| 0 | ` + "`OP_RETURN`" + ` |
| 1 | LOKAD id ` + "`534c5000`" + ` |
| 2 | version, ` + "`01`" + ` or ` + "`02`" + ` |
| 3 | type: ` + "`GENESIS`" + `, ` + "`MINT`" + `, ` + "`SEND`" + ` or ` + "`BURN`" + ` |
| 4+ | type specific fields |

The first output holding a valid SLP script is the marker. Every output the script assigns tokens to is admitted:

- **GENESIS**: output 1 receives the initial quantity; a version 1 mint baton output (2 or later) is admitted too.
- **MINT**: version 1 mints to output 1 and may pass the baton on; version 2 mints one quantity per output starting at output 1.
- **SEND**: one amount per output starting at output 1, or output 0 when the marker is not output 0.
- **BURN**: output 0.

Outputs the transaction does not have are never admitted.

---

## Limitations

Only the structure of the script is checked. The topic manager does not check that the token amounts of the inputs cover the outputs.
`

// LookupDocumentation describes the queries the SLP lookup service answers.
const LookupDocumentation = `# SLP Lookup Service

**Protocol Name**: SLP (Simple Ledger Protocol)
**Lookup Service Name**: ` + "`ls_slp`" + `

---

## Overview

The SLP Lookup Service keeps the token metadata and token-carrying outputs admitted under ` + "`tm_slp`" + `. Admission requires the transaction as atomic BEEF because the SLP script is in a different output from the admitted coin. Spent and evicted outputs are removed.

---

## Queries

- ` + "`\"findAll\"`" + `: every token, newest first.
- ` + "`{\"findAll\": true, \"limit\": 10, \"skip\": 0, \"sortOrder\": \"asc\"}`" + `: paginated tokens ordered by token index.
- ` + "`{\"tokenId\": \"<64 hex>\"}`" + `: the token's metadata.
- ` + "`{\"tokenId\": \"<64 hex>\", \"coins\": true, \"limit\": 10, \"skip\": 0}`" + `: the token's outputs.
- ` + "`{\"outpoint\": \"<txid>.<index>\"}`" + `: the coin held by one output.

` + "`limit`" + ` and ` + "`skip`" + ` must be non-negative; ` + "`sortOrder`" + ` is ` + "`asc`" + ` or ` + "`desc`" + `.

---

## Answers

Answers are freeform JSON arrays. A miss returns an empty array.

Token:

` + "```json" + `
{"tokenId": "…", "tokenIndex": 0, "ticker": "TEST", "name": "Test Token", "uri": "", "decimals": 8, "version": 1}
` + "```" + `

Coin:

` + "```json" + `
{"hash": "<txid>", "index": 1, "tokenId": "…", "tokenIndex": 0, "value": "1000", "type": "GENESIS", "version": 1}
` + "```" + `
`
