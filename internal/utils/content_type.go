package utils

import (
	"fmt"
	"strings"
)

var contentTypeExtensions = []struct {
	needles   []string
	extension string
}{
	{[]string{"jpeg", "jpg"}, "jpg"},
	{[]string{"png"}, "png"},
	{[]string{"svg"}, "svg"},
	{[]string{"gif"}, "gif"},
	{[]string{"pdf"}, "pdf"},
	{[]string{"word", "msword"}, "docx"},
	{[]string{"excel", "spreadsheet"}, "xlsx"},
	{[]string{"powerpoint", "presentation"}, "pptx"},
	{[]string{"text/plain"}, "txt"},
	{[]string{"html"}, "html"},
	{[]string{"zip", "compressed"}, "zip"},
	{[]string{"webp"}, "webp"},
	{[]string{"csv"}, "csv"},
	{[]string{"json"}, "json"},
	{[]string{"xml"}, "xml"},
	{[]string{"calendar"}, "ics"},
	{[]string{"vcard"}, "vcf"},
	{[]string{"message/rfc822"}, "eml"},
}

func GetFileExtensionFromContentType(contentType string) string {
	contentType = strings.ToLower(contentType)
	for _, candidate := range contentTypeExtensions {
		for _, needle := range candidate.needles {
			if strings.Contains(contentType, needle) {
				return candidate.extension
			}
		}
	}
	return "bin"
}

// AttachmentFilename returns name when set, otherwise attachment-<index>.<ext>.
func AttachmentFilename(name, contentType string, index int) string {
	if name = SanitizeFilename(name); name != "" {
		return name
	}
	return fmt.Sprintf("attachment-%d.%s", index+1, GetFileExtensionFromContentType(contentType))
}
