// Package export renders the selection table as CSV or XLSX.
//
// Both formats carry the same table: a header of username, photo_1 ..
// photo_N, then one row per username in submission order with the selected
// image URLs left-aligned and the remaining cells empty.
package export
