package irc

// This file contains documentation for the IRC event handlers.
// The actual handler implementations are split across:
// - client.go: connection lifecycle and dispatch into the nickserv plugin
// - session.go: nickname session, outbound queue, line translation

/*
Handler Summary:

Registration:
- 001 (RPL_WELCOME): records the nickname the server assigned
- 376/422 (onConnect): End of MOTD / MOTD missing
  - Registration complete, plugin sends GHOST if a reclaim is pending
  - OPERs up and sets user modes when configured

Nick Issues:
- 433 (ERR_NICKNAMEINUSE): plugin remembers the occupied nickname
  - only during connection setup; collisions after 376/422 are ignored
  - ircevent itself retries with Phergie_0, Phergie_1, ... (nick + "_" + n)

CTCP:
- PRIVMSG \x01VERSION\x01: replies with the build version as a NOTICE

Plugin Events:
- NOTICE: private notices only, plugin filters on the agent nickname
  - identify request -> IDENTIFY
  - identity confirmed -> nickserv.identified signal
  - ghost confirmed -> NICK back to the reclaimed nickname
- NICK: keeps the session nickname in sync
- QUIT: reclaims the pending nickname if its holder quits

Connection attempts:
- every dial, and every disconnect after 001, resets the session nickname
  and builds a fresh plugin
*/
