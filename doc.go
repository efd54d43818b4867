/*
Package pagevault implements durable storage for a browser page graph:
an append-only mutation log plus periodic full snapshots, encrypted at rest.

We implement:

1. Mutation log, a per-operation journal replayed on top of the last snapshot
during recovery.

2. Snapshots, whole-graph values written at a configurable cadence and on
demand, including user-named copies.

3. Layouts, opaque documents saved by the tiling engine, one default plus one
per named workspace.

4. Migration, transparent in-place re-encoding of stores written before
encryption.

# Technical Details

**Backends.**
The log lives in a Badger directory under 8-byte big-endian sequence keys;
everything table-shaped lives in a single Bolt file with one bucket per table
("snapshots", "tile_layout"). Recovery reads the log in key order, so sequence
numbers never get reused within one log generation; taking a snapshot drops
the log wholesale and restarts the sequence at 1.

**Key management.**
The 32-byte ChaCha20-Poly1305 key is held by the platform credential store,
one item per absolute store location. It is created on first open and never
written anywhere under the store directory.

## Binary encoding

**Value**: magic, then nonce, then ciphertext.

**Magic**: "PGVAULT1", 8 bytes. Values without it are legacy plaintext and
are readable as is; open re-encodes them in place.

**Ciphertext**: ChaCha20-Poly1305 seal of the zstd-compressed msgpack
plaintext under a fresh random 12-byte nonce, tag included.

**Plaintext**: msgpack with sorted map keys, so equal values always produce
equal bytes. Snapshots additionally order nodes and edges by UUID for the
same reason.
*/
package pagevault
