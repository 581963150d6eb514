// Package formula provides the built-in engine components: compound
// interest, scheduled payments and scheduled deposits.
//
// Every component here schedules with calendar arithmetic, so a monthly
// component fired on Jan 31 fires next on the last day of February.
package formula
