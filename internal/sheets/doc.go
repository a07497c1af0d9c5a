// Package sheets reads and appends stock rows through the Google Sheets API
// (sheets/v4).
//
// Appended values use the RAW input option: "=SUM(A1:A2)" is stored as text,
// not evaluated.
package sheets
