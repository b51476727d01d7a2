// Package config holds the persisted gmailer configuration document.
//
// The document carries the OAuth client credentials under "web" and the
// current token state at the top level:
//
//	{
//	  "web": {
//	    "clientId": "...",
//	    "clientSecret": "...",
//	    "authUri": "https://accounts.google.com/o/oauth2/auth",
//	    "tokenUri": "https://accounts.google.com/o/oauth2/token"
//	  },
//	  "accessToken": "...",
//	  "refreshToken": "...",
//	  "expiresAt": 1700000000
//	}
//
// Persistence is behind the Store interface. FileStore reads under a shared
// advisory lock and writes under an exclusive one, replacing the file
// atomically. MemoryStore is an in-process Store for tests.
package config
