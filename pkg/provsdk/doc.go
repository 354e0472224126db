/*
Package provsdk provides the wire types and a client SDK for the provisioning
service.

# Overview

The provisioning service owns tenant registration and login-time orphan
checks. This package holds the request and response shapes both sides agree
on, the API error taxonomy, and a small client for calling the service.

Create a client and drive a registration:

	client := provsdk.NewClient("https://provision.example.com")

	reg, err := client.SubmitRegistration(ctx, provsdk.SubmitRegistrationRequest{
		CompanyName:  "Acme Pty Ltd",
		CompanyEmail: "owner@acme.test",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "owner@acme.test",
		Password:     "...",
	})

	// Poll until the phase is terminal.
	reg, err = client.GetRegistration(ctx, reg.ID)

Run an orphan check for a provider access token:

	check, err := client.LoginCheck(ctx, accessToken)
*/
package provsdk
