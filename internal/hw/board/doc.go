// Package board adapts the host's GPIO hardware to the device capabilities:
// the periph.io platform used for sensor acquisition, the push button and
// the RGB status LED.
package board
