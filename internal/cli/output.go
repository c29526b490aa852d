package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/fatih/color"
)

var (
	folderColor  = color.New(color.FgBlue, color.Bold)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
)

// JSON prints v as indented JSON.
func JSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func Success(w io.Writer, message string) {
	successColor.Fprintln(w, message)
}

// FolderTree prints a forest with box-drawing guides, one folder per line.
func FolderTree(w io.Writer, roots []*models.FolderNode) {
	if len(roots) == 0 {
		fmt.Fprintln(w, "No folders found.")
		return
	}
	for i, root := range roots {
		printNode(w, root, "", i == len(roots)-1)
	}
}

func printNode(w io.Writer, node *models.FolderNode, prefix string, last bool) {
	branch, next := "├── ", "│   "
	if last {
		branch, next = "└── ", "    "
	}
	fmt.Fprint(w, prefix+branch)
	folderColor.Fprintln(w, node.Name+"/")
	for i, child := range node.Children {
		printNode(w, child, prefix+next, i == len(node.Children)-1)
	}
}

func ReconcileSummary(w io.Writer, result services.ReconcileResult) {
	successColor.Fprintf(w, "Fixed:   %d\n", result.Fixed)
	fmt.Fprintf(w, "Skipped: %d\n", result.Skipped)
	if result.Failed > 0 {
		failureColor.Fprintf(w, "Failed:  %d\n", result.Failed)
		return
	}
	fmt.Fprintf(w, "Failed:  %d\n", result.Failed)
}

// describeValidation flattens field errors into one readable line.
func describeValidation(err error) error {
	var validationErr *apperr.ValidationError
	if !errors.As(err, &validationErr) || len(validationErr.Fields) == 0 {
		return err
	}

	fields := make([]string, 0, len(validationErr.Fields))
	for field := range validationErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(validationErr.Fields[field], ", "))
	}
	return fmt.Errorf("%s (%s)", validationErr.Message, strings.Join(parts, "; "))
}
