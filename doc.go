// Package reactor is a leader/follower multi-reactor TCP server
// framework: one reactor owns every listening socket and steers accepted
// connections to follower reactors, an optional worker pool runs decoded
// requests off the I/O path, and a reference-counted connection lifetime
// lets in-flight work safely outlive a closed socket.
//
// Applications supply a HandleSet per listener (Decode/Encode/Process plus
// connection lifecycle hooks) and drive the server through NewServer,
// AddListener, Start, Run, Stop, and Destroy.
package reactor
