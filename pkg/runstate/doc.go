// Package runstate stores the timestamp and source list of the last
// successful run. The scanner uses it to list only posts newer than that
// timestamp for sources it has seen before.
package runstate
