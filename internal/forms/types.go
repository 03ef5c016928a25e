// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package forms

// Register is the sign-up form.
type Register struct {
	Email    string `form:"email" label:"Email" validate:"required,email,max=100"`
	Password string `form:"password,raw" label:"Password" validate:"required,min=8,max=128"`
	Name     string `form:"name" label:"Name" validate:"required,max=100"`
}

// Login is the sign-in form.
type Login struct {
	Email    string `form:"email" label:"Email" validate:"required,email"`
	Password string `form:"password,raw" label:"Password" validate:"required"`
}

// Project is the create and edit form for project posts.
type Project struct {
	Title    string `form:"title" label:"Title" validate:"required,max=250"`
	Subtitle string `form:"subtitle" label:"Subtitle" validate:"required,max=250"`
	ImgURL   string `form:"img_url" label:"Image URL" validate:"required,http_url,max=250"`
	Body     string `form:"body" label:"Content" validate:"required"`
}

// Contact is the public contact form.
type Contact struct {
	Name    string `form:"name" label:"Name" validate:"required,max=100"`
	Email   string `form:"email" label:"Email" validate:"required,email,max=100"`
	Subject string `form:"subject" label:"Subject" validate:"required,max=200"`
	Message string `form:"message" label:"Message" validate:"required,max=5000"`
}
