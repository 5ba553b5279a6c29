package matroska

import (
	"github.com/cockroachdb/errors"
)

var DefaultFontMimeTypes = []string{
	"application/x-truetype-font",
	"application/x-font-otf",
	"font/ttf",
	"font/otf",
}

// Attachment is an AttachedFile element. The payload stays in the file until
// something asks for it.
type Attachment struct {
	DataPosition int64
	DataSize     int64
	FileName     string
	MimeType     string
}

func (c *ElementCursor) readAttachmentsElement(attachmentsElement Element) ([]Attachment, error) {
	var attachments []Attachment

	childrenErr := c.readChildren(attachmentsElement, func(element Element) error {
		if element.Id != ElementAttachedFile {
			return nil
		}

		attachment := Attachment{}

		fileErr := c.readChildren(element, func(child Element) error {
			var readErr error

			switch child.Id {
			case ElementFileName:
				attachment.FileName, readErr = c.ReadString(child.DataSize)
			case ElementFileMimeType:
				attachment.MimeType, readErr = c.ReadString(child.DataSize)
			case ElementFileData:
				attachment.DataPosition = child.DataPosition
				attachment.DataSize = child.DataSize
			}

			return readErr
		})
		if fileErr != nil {
			return errors.Wrap(fileErr, "failed to read attached file element")
		}

		attachments = append(attachments, attachment)

		return nil
	})
	if childrenErr != nil {
		return attachments, errors.Wrap(childrenErr, "failed to read attachments element")
	}

	return attachments, nil
}

func (c *ElementCursor) readAttachmentData(attachment Attachment) ([]byte, error) {
	seekErr := c.SeekTo(attachment.DataPosition)
	if seekErr != nil {
		return nil, seekErr
	}

	data, dataErr := c.ReadBytes(attachment.DataSize)
	if dataErr != nil {
		return nil, errors.Wrapf(dataErr, "failed to read attachment %s", attachment.FileName)
	}

	return data, nil
}
