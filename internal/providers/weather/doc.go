// Package weather proxies current-conditions lookups to WeatherAPI.com.
//
// The city is stripped of markup and surrounding space before it is sent;
// an empty city becomes the configured default ("New York" unless set).
// A successful response body is passed through untouched.
package weather
