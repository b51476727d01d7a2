// Package mail builds RFC 822 / MIME messages for the Gmail send endpoint.
//
// Build produces a multipart/mixed message whose first part is the HTML body
// and whose remaining parts are base64 encoded file attachments. Attachment
// paths that do not exist are skipped; paths that exist but cannot be read
// fail the build with an *AttachmentReadError.
package mail
