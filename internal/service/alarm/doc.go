// Package alarm decides when a reading should sound the buzzer.
//
// Temperature is checked before humidity and a triggered temperature alarm
// skips the humidity check for that cycle. A flag is cleared right after it
// triggers, so a quantity that stays over its threshold beeps on every cycle.
package alarm
