package common

// AuthorizationHeader is the HTTP header carrying the bearer access token on
// outbound sync requests.
const AuthorizationHeader = "Authorization"
