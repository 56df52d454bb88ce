// Package command implements both ends of the intercom command link.
// The relay forwards validated console commands to a connected intercom,
// and the client stands in for the intercom when testing the relay.
package command
