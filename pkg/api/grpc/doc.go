// Package grpc serves the standard gRPC health protocol for ytscope, so
// load balancers and orchestrators can probe provider availability.
package grpc
