// Package message parses and serializes HDF5 object header messages.
//
// An object header is a list of typed messages. The types this package
// understands are:
//
//   - Dataspace (0x0001): rank and dimensions. See [Dataspace].
//   - Link Info (0x0002): link storage of a new-style group. See [LinkInfo].
//   - Datatype (0x0003): element type. See [Datatype].
//   - Fill Value (0x0005). See [FillValue].
//   - Link (0x0006): one named link of a group. See [Link].
//   - Data Layout (0x0008): compact, contiguous or chunked storage. See [DataLayout].
//   - Group Info (0x000A). See [GroupInfo].
//   - Filter Pipeline (0x000B): chunk filters. See [FilterPipeline].
//   - Attribute (0x000C). See [Attribute].
//   - Continuation (0x0010): more header space elsewhere. See [Continuation].
//   - Symbol Table (0x0011): B-tree and local heap of an old-style group.
//
// Anything else comes back as [Unknown] with its raw bytes.
//
// Messages that the writer emits implement [Serializable]. Serialization
// always targets the newest encoding of each message that the reader side
// of this package also parses, so every written message round-trips.
package message
