// Package export renders device listings as Excel workbooks using excelize.
package export
