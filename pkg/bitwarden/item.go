/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bitwarden

import (
	"encoding/json"
)

// ItemType is the numeric Bitwarden item type.
type ItemType int

const (
	ItemTypeLogin      ItemType = 1
	ItemTypeSecureNote ItemType = 2
	ItemTypeCard       ItemType = 3
	ItemTypeIdentity   ItemType = 4
)

// Item is a vault item as printed by `bw list items`.
// Notes and Login are nil when the field is absent or JSON null.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	FolderID *string  `json:"folderId"`
	Type     ItemType `json:"type"`
	Notes    *string  `json:"notes"`
	Login    *Login   `json:"login"`
}

// Login holds the credential pair of a login item.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Folder is a vault folder as printed by `bw get folder`.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func decodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeFolder(data []byte) (*Folder, error) {
	var folder Folder
	if err := json.Unmarshal(data, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}
