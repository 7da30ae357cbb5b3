// Package receipt contains the Receipt bounded context.
// It describes the booking record a receipt is generated from, the finished
// receipt document handed to delivery, and the display formatting rules
// shared by the layout and QR stages.
package receipt
