// Package gmail provides a client for the Gmail REST API.
//
// The client covers the message endpoints gmailer needs: send, list, get,
// read, label updates, batch delete and attachments. Every call first makes
// sure the OAuth access token is valid, then waits for Gmail quota units
// before issuing the request. Responses are reshaped into NormalizedMessage
// values with typed fields instead of raw header arrays.
//
// Body extraction only scans the top-level MIME parts of a message. A
// text/plain part is preferred; otherwise a text/html part is converted to
// plain text. Nested multiparts are not searched.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, tokenStore, gmail.Config{Logger: logger})
//	if err != nil {
//	    return err
//	}
//
//	res, err := client.List(ctx, gmail.ListOptions{Query: "is:unread", MaxResults: 10})
//	if err != nil {
//	    return err
//	}
//	for _, m := range res.Messages {
//	    fmt.Println(m.From, m.Subject)
//	}
package gmail
