// Package opus moves Opus audio from a transcoder to a Discord voice
// connection.
//
// Transcoders emit Ogg-encapsulated Opus; OggReader unwraps it into raw
// frames. Frames can also be stored in a minimal binary format: concatenated
// length-prefixed frames ([uint16 LE length][opus bytes]), read by
// FrameReader and written by FrameWriter.
//
// Player sends frames from one source at a time to a sink channel (usually
// VoiceConnection.OpusSend) and reports exactly one Event per playback.
package opus
