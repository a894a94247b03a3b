package internal

// Version is the driver version sent to the server in the handshake.
const Version = "0.2.0"
